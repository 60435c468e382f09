package link

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/oshokin/alarm-panel/internal/domain/alarm"
)

// FrameSize is the fixed number of bytes exchanged in one round.
const FrameSize = 20

var (
	// ErrShortFrame is returned when a round ends before FrameSize bytes were clocked.
	ErrShortFrame = errors.New("short frame")
	// ErrInvalidVocabulary is returned for unusable wire literals.
	ErrInvalidVocabulary = errors.New("invalid link vocabulary")
)

// Frame is one NUL-padded ASCII message. There is no header, length or checksum;
// the boundary is the fixed size.
type Frame [FrameSize]byte

// EncodeFrame copies text into a NUL-padded frame, truncating at FrameSize.
func EncodeFrame(text string) Frame {
	var f Frame

	copy(f[:], text)

	return f
}

// Text returns the frame contents up to the first NUL byte.
func (f Frame) Text() string {
	if i := bytes.IndexByte(f[:], 0); i >= 0 {
		return string(f[:i])
	}

	return string(f[:])
}

// Vocabulary holds the two literals a sensor node may send.
// Both ends of a link must be configured with the same vocabulary.
type Vocabulary struct {
	// Movement is sent while the motion input is asserted.
	Movement string `yaml:"movement"`
	// Idle is sent otherwise.
	Idle string `yaml:"idle"`
}

//nolint:gochecknoglobals // Wire literals shared by both nodes.
var (
	// DefaultVocabulary is what both nodes use unless configured otherwise.
	// The movement literal is the one the master has always compared against.
	DefaultVocabulary = Vocabulary{Movement: "movement_detected", Idle: "nothing"}

	// LegacyNodeVocabulary reproduces the literals of the first sensor firmware.
	// A master using DefaultVocabulary never recognizes its movement frame.
	LegacyNodeVocabulary = Vocabulary{Movement: "movement", Idle: "nothing"}
)

// Validate checks both literals fit a frame with a terminating NUL and differ.
func (v Vocabulary) Validate() error {
	for _, literal := range []string{v.Movement, v.Idle} {
		if literal == "" || len(literal) >= FrameSize {
			return fmt.Errorf("literal %q must be 1..%d bytes: %w", literal, FrameSize-1, ErrInvalidVocabulary)
		}

		if bytes.IndexByte([]byte(literal), 0) >= 0 {
			return fmt.Errorf("literal %q contains NUL: %w", literal, ErrInvalidVocabulary)
		}
	}

	if v.Movement == v.Idle {
		return fmt.Errorf("movement and idle literals are equal: %w", ErrInvalidVocabulary)
	}

	return nil
}

// Encode returns the frame a node sends for the given input level.
func (v Vocabulary) Encode(asserted bool) Frame {
	if asserted {
		return EncodeFrame(v.Movement)
	}

	return EncodeFrame(v.Idle)
}

// Classify maps a received frame to a reading. Anything but an exact match of
// the movement literal, including garbage, is Idle.
func (v Vocabulary) Classify(f Frame) alarm.SensorReading {
	if f.Text() == v.Movement {
		return alarm.MovementDetected
	}

	return alarm.Idle
}
