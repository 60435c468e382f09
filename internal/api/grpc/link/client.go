package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/alarm-panel/internal/link"
)

// errBadClock is returned when the node answers with anything but one byte.
var errBadClock = errors.New("node must answer one byte per clock")

// Bus is the master side of the Sensor Link over a gRPC connection.
type Bus struct {
	// conn carries the Clock streams.
	conn grpc.ClientConnInterface
	// roundTimeout bounds a whole round, zero means no deadline.
	roundTimeout time.Duration
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithRoundTimeout bounds every round.
func WithRoundTimeout(timeout time.Duration) BusOption {
	return func(b *Bus) {
		if timeout > 0 {
			b.roundTimeout = timeout
		}
	}
}

// NewBus creates a bus on an established connection.
func NewBus(conn grpc.ClientConnInterface, opts ...BusOption) *Bus {
	b := &Bus{
		conn: conn,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Begin implements link.Bus by opening a Clock stream.
func (b *Bus) Begin(ctx context.Context) (domain.Round, error) {
	roundCtx, cancel := b.roundContext(ctx)

	stream, err := b.conn.NewStream(roundCtx, &ServiceDesc.Streams[0], ClockFullMethod)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("open clock stream: %w", err)
	}

	return &round{
		stream: &grpc.GenericClientStream[wrapperspb.BytesValue, wrapperspb.BytesValue]{ClientStream: stream},
		cancel: cancel,
	}, nil
}

// roundContext applies the round timeout if configured.
func (b *Bus) roundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.roundTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, b.roundTimeout)
}

type round struct {
	stream grpc.BidiStreamingClient[wrapperspb.BytesValue, wrapperspb.BytesValue]
	cancel context.CancelFunc
	ended  bool
}

// Shift sends one byte and waits for the byte clocked back.
func (r *round) Shift(out byte) (byte, error) {
	if r.ended {
		return 0, domain.ErrRoundClosed
	}

	if err := r.stream.Send(wrapperspb.Bytes([]byte{out})); err != nil {
		return 0, fmt.Errorf("send clock: %w", err)
	}

	response, err := r.stream.Recv()
	if err != nil {
		return 0, fmt.Errorf("receive clock: %w", err)
	}

	value := response.GetValue()
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: got %d", errBadClock, len(value))
	}

	return value[0], nil
}

// End deselects the node and waits until it has finished the round.
func (r *round) End() error {
	if r.ended {
		return nil
	}

	r.ended = true
	defer r.cancel()

	if err := r.stream.CloseSend(); err != nil {
		return fmt.Errorf("close clock stream: %w", err)
	}

	for {
		_, err := r.stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("finish clock stream: %w", err)
		}
	}
}
