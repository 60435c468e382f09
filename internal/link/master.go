package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/logger"
)

// RoundHook observes the outcome of every polling round.
type RoundHook func(reading alarm.SensorReading, err error)

// Master polls the sensor node over a Bus.
type Master struct {
	// bus carries the rounds.
	bus Bus
	// vocabulary interprets received frames.
	vocabulary Vocabulary
	// request is clocked out on every round. Its payload is not interpreted by the node.
	request Frame
	// hook is called after every round, may be nil.
	hook RoundHook
}

// MasterOption configures a Master.
type MasterOption func(*Master)

// WithRequest sets the frame clocked out on every round.
func WithRequest(f Frame) MasterOption {
	return func(m *Master) {
		m.request = f
	}
}

// WithRoundHook registers a per-round observer.
func WithRoundHook(hook RoundHook) MasterOption {
	return func(m *Master) {
		m.hook = hook
	}
}

// NewMaster creates a poller with the given vocabulary.
func NewMaster(bus Bus, vocabulary Vocabulary, opts ...MasterOption) *Master {
	m := &Master{
		bus:        bus,
		vocabulary: vocabulary,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Exchange runs one full round and returns the received frame.
// If the round breaks off, the bytes received so far are returned with an
// error wrapping ErrShortFrame.
func (m *Master) Exchange(ctx context.Context) (Frame, error) {
	var received Frame

	round, err := m.bus.Begin(ctx)
	if err != nil {
		return received, fmt.Errorf("begin round: %w", err)
	}

	for i := range FrameSize {
		in, shiftErr := round.Shift(m.request[i])
		if shiftErr != nil {
			_ = round.End() //nolint:errcheck // The shift error is the one worth reporting.

			return received, fmt.Errorf("%w: %d of %d bytes: %w", ErrShortFrame, i, FrameSize, shiftErr)
		}

		received[i] = in
	}

	if err = round.End(); err != nil {
		return received, fmt.Errorf("end round: %w", err)
	}

	return received, nil
}

// Poll runs one round and classifies it. A failed or short round reads as
// Idle; the error is returned alongside so the caller can log it.
func (m *Master) Poll(ctx context.Context) (alarm.SensorReading, error) {
	frame, err := m.Exchange(ctx)

	reading := alarm.Idle
	if err == nil {
		reading = m.vocabulary.Classify(frame)
	}

	logger.DebugKV(ctx, "Link frame received", "text", frame.Text(), "reading", reading.String())

	if m.hook != nil && !errors.Is(err, context.Canceled) {
		m.hook(reading, err)
	}

	return reading, err
}
