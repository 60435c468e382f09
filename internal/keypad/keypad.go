// Package keypad decodes 4x4 matrix keypad codes into alarm keys and
// provides blocking key sources for the master node.
package keypad

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/oshokin/alarm-panel/internal/domain/alarm"
)

// ErrClosed is returned when a key source has no more keys.
var ErrClosed = errors.New("keypad closed")

// Keypad is a blocking source of decoded keys. GetKey returns only keys that
// decode to something; ignored codes are skipped.
type Keypad interface {
	GetKey(ctx context.Context) (alarm.Key, error)
}

// Decode maps a raw keypad code to a key. Codes without a meaning decode to
// alarm.KeyNone. The mapping is total and deterministic.
func Decode(raw byte) alarm.Key {
	switch {
	case alarm.IsDigit(raw):
		return alarm.Key(raw)
	case raw == '*':
		return alarm.KeyArm
	case raw == '#':
		return alarm.KeyMenu
	case raw == 'A' || raw == 'a':
		return alarm.KeyChange
	case raw == 'B' || raw == 'b':
		return alarm.KeyCancel
	case raw == 'C' || raw == 'c':
		return alarm.KeyBackspace
	case raw == 'D' || raw == 'd':
		return alarm.KeySubmit
	default:
		return alarm.KeyNone
	}
}

// Reader decodes keys from a byte stream, for example a console.
//
// A read blocks until a byte arrives; context cancellation is observed only
// between bytes, the same way a hardware keypad scan is not interruptible.
type Reader struct {
	// mu serializes reads.
	mu sync.Mutex
	// r is the buffered source.
	r *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// GetKey implements Keypad.
func (k *Reader) GetKey(ctx context.Context) (alarm.Key, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return alarm.KeyNone, err
		}

		raw, err := k.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return alarm.KeyNone, ErrClosed
			}

			return alarm.KeyNone, fmt.Errorf("read key: %w", err)
		}

		if key := Decode(raw); key != alarm.KeyNone {
			return key, nil
		}
	}
}

// Script replays a fixed key sequence and then blocks until the context ends.
// It feeds scripted scenarios and tests.
type Script struct {
	// mu guards keys.
	mu sync.Mutex
	// keys is the remaining sequence.
	keys []alarm.Key
	// closeWhenDone makes GetKey return ErrClosed instead of blocking after the last key.
	closeWhenDone bool
}

// NewScript creates a script from raw keypad codes, e.g. "#1234D".
func NewScript(codes string) *Script {
	s := new(Script)
	s.Push(codes)

	return s
}

// CloseWhenDone makes the script report ErrClosed after the last key.
func (s *Script) CloseWhenDone() *Script {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeWhenDone = true

	return s
}

// Push appends raw codes to the script.
func (s *Script) Push(codes string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range len(codes) {
		if key := Decode(codes[i]); key != alarm.KeyNone {
			s.keys = append(s.keys, key)
		}
	}
}

// Remaining returns the number of keys not yet read.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.keys)
}

// GetKey implements Keypad.
func (s *Script) GetKey(ctx context.Context) (alarm.Key, error) {
	s.mu.Lock()

	if len(s.keys) > 0 {
		key := s.keys[0]
		s.keys = s.keys[1:]
		s.mu.Unlock()

		return key, nil
	}

	closeWhenDone := s.closeWhenDone
	s.mu.Unlock()

	if closeWhenDone {
		return alarm.KeyNone, ErrClosed
	}

	<-ctx.Done()

	return alarm.KeyNone, ctx.Err()
}
