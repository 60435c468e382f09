package sensor

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-panel/internal/api/grpc/link"
	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/logger"
	node "github.com/oshokin/alarm-panel/internal/sensor"
	"github.com/oshokin/alarm-panel/internal/version"
)

// Options controls the alarm-sensor process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// SensorPin overrides the motion input value file.
	SensorPin string
	// Listening, when set, receives the bound address once the server accepts rounds.
	Listening func(address string)
}

// ErrNoListenAddress indicates missing listen configuration.
var ErrNoListenAddress = errors.New("no listen or link address configured")

// Run starts the sensor node gRPC server and blocks until the context is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-sensor")
	ctx = logger.WithFields(ctx, version.LogFields()...)

	settings, err := config.Read(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Command line arguments override the file.
	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.SensorPin != "" {
		settings.SensorPin = opts.SensorPin
	}

	if err = config.Validate(settings); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	if !logger.SetLevelFromString(settings.LogLevel) {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "log_level", settings.LogLevel)
	}

	listenAddress, err := resolveListenAddress(settings)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	var pin node.Pin = new(node.StaticPin)
	if settings.SensorPin != "" {
		pin = node.NewSysfsPin(settings.SensorPin)
	} else {
		logger.Warn(ctx, "No sensor pin configured, reporting no movement")
	}

	sensorNode := node.NewNode(pin, settings.Vocabulary())

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterSensorLinkServer(grpcServer, api.NewServer(sensorNode))

	logger.InfoKV(ctx, "Sensor node listening",
		"listen_address", lis.Addr().String(),
		"sensor_pin", settings.SensorPin,
		"movement_literal", settings.MovementLiteral,
	)

	if opts.Listening != nil {
		opts.Listening(lis.Addr().String())
	}

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.InfoKV(ctx, "GRPC server stopped", "rounds", sensorNode.Rounds())

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server:
// listen_addr if set, otherwise the port of link_addr on all interfaces.
func resolveListenAddress(settings *config.Config) (string, error) {
	// Use listen address if provided (e.g., ":9090", "0.0.0.0:8080").
	if settings.ListenAddress != "" {
		return settings.ListenAddress, nil
	}

	if settings.LinkAddress == "" {
		return "", ErrNoListenAddress
	}

	// Extract port from link address (e.g., "sensor.local:50051" -> ":50051").
	_, port, err := net.SplitHostPort(settings.LinkAddress)
	if err != nil {
		return "", fmt.Errorf("invalid link address format %q: %w", settings.LinkAddress, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
