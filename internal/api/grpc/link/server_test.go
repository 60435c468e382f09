package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/alarm-panel/internal/domain/alarm"
	domain "github.com/oshokin/alarm-panel/internal/link"
	"github.com/oshokin/alarm-panel/internal/sensor"
)

const bufSize = 1 << 16

// startNode serves a sensor node over an in-memory listener and returns a client connection.
func startNode(t *testing.T, node *sensor.Node) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(bufSize)

	srv := grpc.NewServer()
	RegisterSensorLinkServer(srv, NewServer(node))

	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient(
		"passthrough:///sensor",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()

		srv.Stop()
	})

	return conn
}

// TestClock_FullRound polls the node through the gRPC bus.
func TestClock_FullRound(t *testing.T) {
	t.Parallel()

	pin := new(sensor.StaticPin)
	node := sensor.NewNode(pin, domain.DefaultVocabulary)
	master := domain.NewMaster(
		NewBus(startNode(t, node)),
		domain.DefaultVocabulary,
		domain.WithRequest(domain.EncodeFrame("poll")),
	)

	reading, err := master.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, alarm.Idle, reading)

	pin.Set(true)

	reading, err = master.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, alarm.MovementDetected, reading)

	// End waits for the node to finish, so the count is settled here.
	require.Equal(t, uint64(2), node.Rounds())
	require.Equal(t, "poll", node.LastReceived().Text())
}

// TestClock_PartialRoundNotCounted deselects the node before the frame is complete.
func TestClock_PartialRoundNotCounted(t *testing.T) {
	t.Parallel()

	node := sensor.NewNode(new(sensor.StaticPin), domain.DefaultVocabulary)
	bus := NewBus(startNode(t, node))

	round, err := bus.Begin(context.Background())
	require.NoError(t, err)

	for _, want := range []byte("noth") {
		got, shiftErr := round.Shift(0)
		require.NoError(t, shiftErr)
		require.Equal(t, want, got)
	}

	require.NoError(t, round.End())
	require.NoError(t, round.End())
	require.Zero(t, node.Rounds())

	_, err = round.Shift(0)
	require.ErrorIs(t, err, domain.ErrRoundClosed)
}

// TestClock_RejectsMultiByteMessages enforces one byte per clock.
func TestClock_RejectsMultiByteMessages(t *testing.T) {
	t.Parallel()

	conn := startNode(t, sensor.NewNode(new(sensor.StaticPin), domain.DefaultVocabulary))

	stream, err := conn.NewStream(context.Background(), &ServiceDesc.Streams[0], ClockFullMethod)
	require.NoError(t, err)

	require.NoError(t, stream.SendMsg(wrapperspb.Bytes([]byte("ab"))))

	err = stream.RecvMsg(new(wrapperspb.BytesValue))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestBus_UnreachableNodeFailsOpen reads Idle when no node answers.
func TestBus_UnreachableNodeFailsOpen(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(bufSize)
	require.NoError(t, lis.Close())

	conn, err := grpc.NewClient(
		"passthrough:///sensor",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	master := domain.NewMaster(NewBus(conn, WithRoundTimeout(time.Second)), domain.DefaultVocabulary)

	reading, err := master.Poll(context.Background())
	require.Error(t, err)
	require.Equal(t, alarm.Idle, reading)
}
