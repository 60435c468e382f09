// Package sounder drives the alarm buzzer of the master node.
//
// The sounder is binary: Off to On starts a fixed-frequency tone and On to
// Off stops it. The state change is the only observable effect.
package sounder

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/oshokin/alarm-panel/internal/logger"
)

// ToneFrequency is the buzzer pitch in hertz.
const ToneFrequency = 3250

// Driver generates or silences the physical tone.
type Driver interface {
	StartTone(hz int) error
	StopTone() error
}

// Sounder tracks the on/off state and forwards transitions to a Driver.
type Sounder struct {
	// driver produces the tone.
	driver Driver

	// mu protects on.
	mu sync.Mutex
	// on is the current state.
	on bool
}

// New creates a silent sounder. A nil driver is replaced with a no-op one.
func New(driver Driver) *Sounder {
	if driver == nil {
		driver = Nop{}
	}

	return &Sounder{driver: driver}
}

// On starts the tone. Calling On while already on does nothing.
func (s *Sounder) On(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.on {
		return nil
	}

	if err := s.driver.StartTone(ToneFrequency); err != nil {
		return fmt.Errorf("start tone: %w", err)
	}

	s.on = true
	logger.InfoKV(ctx, "Sounder on", "frequency_hz", ToneFrequency)

	return nil
}

// Off stops the tone immediately. Calling Off while already off does nothing.
func (s *Sounder) Off(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.on {
		return nil
	}

	if err := s.driver.StopTone(); err != nil {
		return fmt.Errorf("stop tone: %w", err)
	}

	s.on = false
	logger.Info(ctx, "Sounder off")

	return nil
}

// IsOn reports whether the tone is playing.
func (s *Sounder) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.on
}

// Nop is a driver without hardware.
type Nop struct{}

// StartTone implements Driver.
func (Nop) StartTone(int) error { return nil }

// StopTone implements Driver.
func (Nop) StopTone() error { return nil }

// Bell rings the terminal bell when the tone starts and prints a marker when it stops.
type Bell struct {
	W io.Writer
}

// StartTone implements Driver.
func (b Bell) StartTone(hz int) error {
	_, err := fmt.Fprintf(b.W, "\a[sounder on %d Hz]\n", hz)

	return err
}

// StopTone implements Driver.
func (b Bell) StopTone() error {
	_, err := fmt.Fprintln(b.W, "[sounder off]")

	return err
}
