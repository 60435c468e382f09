package link

import (
	"errors"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/alarm-panel/internal/link"
	"github.com/oshokin/alarm-panel/internal/logger"
)

// Server answers Clock streams with a sensor node.
type Server struct {
	// slave answers the clocked bytes.
	slave domain.Slave
}

// NewServer wires the provided slave into a gRPC handler.
func NewServer(slave domain.Slave) *Server {
	return &Server{
		slave: slave,
	}
}

// Clock runs one round: the slave is selected when the stream opens and
// deselected when the master closes its side.
func (s *Server) Clock(stream ClockStream) error {
	ctx := stream.Context()

	round := s.slave.Select(ctx)
	defer round.Deselect()

	for {
		request, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			logger.DebugKV(ctx, "Clock stream broken", "error", err)

			return err
		}

		value := request.GetValue()
		if len(value) != 1 {
			return status.Errorf(codes.InvalidArgument, "expected one byte per clock, got %d", len(value))
		}

		if err = stream.Send(wrapperspb.Bytes([]byte{round.Shift(value[0])})); err != nil {
			return err
		}
	}
}
