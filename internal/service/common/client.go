//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/alarm-panel/internal/api/grpc/link"
	"github.com/oshokin/alarm-panel/internal/config"
)

// Client owns the gRPC connection to a sensor node and the bus running on it.
type Client struct {
	// conn is the underlying gRPC connection to the sensor node.
	conn *grpc.ClientConn
	// bus clocks link rounds over conn.
	bus *api.Bus

	// roundTimeout bounds a single link round.
	roundTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithRoundTimeout sets the deadline of every link round.
func WithRoundTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.roundTimeout = timeout
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial prepares a gRPC connection to the sensor node. The connection is
// established lazily by the first round.
// Note: this uses insecure transport credentials; the link is expected to run
// on a private segment between the two nodes.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial sensor node: %w", err)
	}

	client := &Client{
		conn:         conn,
		roundTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.bus = api.NewBus(conn, api.WithRoundTimeout(client.roundTimeout))

	return client, nil
}

// Bus returns the master side of the link.
func (c *Client) Bus() *api.Bus {
	return c.bus
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}
