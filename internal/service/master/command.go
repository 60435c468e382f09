package master

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/controller"
	"github.com/oshokin/alarm-panel/internal/display"
	"github.com/oshokin/alarm-panel/internal/keypad"
	"github.com/oshokin/alarm-panel/internal/link"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/metrics"
	"github.com/oshokin/alarm-panel/internal/notify"
	"github.com/oshokin/alarm-panel/internal/sensor"
	"github.com/oshokin/alarm-panel/internal/service/common"
	"github.com/oshokin/alarm-panel/internal/session"
	"github.com/oshokin/alarm-panel/internal/sounder"
	"github.com/oshokin/alarm-panel/internal/timeout"
	"github.com/oshokin/alarm-panel/internal/version"
)

// Options controls the alarm-master process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LinkAddress provides an optional sensor node address override.
	LinkAddress string
	// Simulate runs the sensor node in-process regardless of the config.
	Simulate bool
	// AllowMultiple skips the single instance check.
	AllowMultiple bool
	// Headless logs display output instead of drawing the LCD.
	Headless bool
	// Input is the keypad byte stream, os.Stdin when nil.
	Input io.Reader
	// Output receives the display and the sounder, os.Stdout when nil.
	Output io.Writer
}

// shutdownGrace is how long Run waits for a keypad read blocked on input.
const shutdownGrace = time.Second

// Run starts the master node and blocks until the context is canceled or the
// keypad input ends.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-master")
	ctx = logger.WithFields(ctx, version.LogFields()...)

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	if !logger.SetLevelFromString(settings.LogLevel) {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "log_level", settings.LogLevel)
	}

	if !opts.AllowMultiple {
		if err = ensureSingleInstance(); err != nil {
			return err
		}
	}

	input, output := opts.Input, opts.Output
	if input == nil {
		input = os.Stdin
	}

	if output == nil {
		output = os.Stdout
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus, closeBus, err := openBus(ctx, settings)
	if err != nil {
		return err
	}

	defer closeBus()

	collector := metrics.New()
	observers := []controller.Observer{collector}

	if settings.MQTTBroker != "" {
		publisher, connectErr := connectPublisher(ctx, settings)
		if connectErr != nil {
			return connectErr
		}

		defer publisher.Close()

		observers = append(observers, publisher)
	}

	kp := keypad.NewReader(input)

	var screen display.Display = display.NewLCD(output)
	if opts.Headless {
		screen = display.NewLog(ctx)
	}

	alarmSounder := sounder.New(sounder.Bell{W: output})

	ctrl, err := controller.New(
		controller.Dependencies{
			Keypad:  kp,
			Display: screen,
			Sounder: alarmSounder,
			Session: session.New(
				kp,
				screen,
				timeout.New(settings.EntryTimeout),
				session.WithMaskedInput(settings.MaskInput),
				session.WithMessageDelay(settings.Delay()),
			),
			Poller: link.NewMaster(bus, settings.Vocabulary(), link.WithRoundHook(collector.ObserveRound)),
		},
		controller.WithPollInterval(settings.PollInterval),
		controller.WithMessageDelay(settings.Delay()),
		controller.WithObservers(observers...),
	)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	defer func() {
		_ = alarmSounder.Off(context.WithoutCancel(ctx)) //nolint:errcheck // Exit path.
	}()

	g, gctx := errgroup.WithContext(ctx)

	if settings.MetricsAddress != "" {
		g.Go(func() error {
			return collector.Serve(gctx, settings.MetricsAddress)
		})
	}

	logger.InfoKV(ctx, "Alarm master started",
		"simulate", settings.Simulate,
		"link_address", settings.LinkAddress,
		"poll_interval", settings.PollInterval.String(),
		"entry_timeout", settings.EntryTimeout.String(),
	)

	runErr := runController(gctx, ctrl)

	cancel()

	if err = g.Wait(); err != nil {
		return err
	}

	if errors.Is(runErr, keypad.ErrClosed) {
		logger.Info(ctx, "Keypad input closed, exiting")

		return nil
	}

	return runErr
}

// runController runs the state machine and gives a keypad read blocked on
// input a short grace period once ctx ends.
func runController(ctx context.Context, ctrl *controller.Controller) error {
	done := make(chan error, 1)

	go func() {
		done <- ctrl.Run(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	select {
	case err := <-done:
		return err
	case <-time.After(shutdownGrace):
		logger.Info(ctx, "Keypad read still pending, exiting")

		return nil
	}
}

func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Read(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	// Command line arguments override the file.
	if opts.LinkAddress != "" {
		settings.LinkAddress = opts.LinkAddress
	}

	settings.Simulate = settings.Simulate || opts.Simulate

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return settings, nil
}

// openBus returns the link to the sensor node: an in-process node in
// simulation, a gRPC connection otherwise.
func openBus(ctx context.Context, settings *config.Config) (link.Bus, func(), error) {
	if settings.Simulate {
		var pin sensor.Pin = new(sensor.StaticPin)
		if settings.SensorPin != "" {
			pin = sensor.NewSysfsPin(settings.SensorPin)
		}

		logger.InfoKV(ctx, "Simulating sensor node in-process", "sensor_pin", settings.SensorPin)

		node := sensor.NewNode(pin, settings.Vocabulary())

		return link.Direct{Slave: quietSlave{node}}, func() {}, nil
	}

	client, err := common.Dial(ctx, settings.LinkAddress, common.WithRoundTimeout(settings.Timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("dial sensor node: %w", err)
	}

	return client.Bus(), func() {
		_ = client.Close()
	}, nil
}

// quietSlave keeps per-round logs of the simulated node out of the master output.
type quietSlave struct {
	link.Slave
}

//nolint:ireturn // link.Slave contract.
func (s quietSlave) Select(ctx context.Context) link.SlaveRound {
	ctx = logger.WithName(ctx, "simulated-sensor")

	return s.Slave.Select(logger.WithMinLevel(ctx, zapcore.WarnLevel))
}

func connectPublisher(ctx context.Context, settings *config.Config) (*notify.Publisher, error) {
	actor, err := common.DetectActor()
	if err != nil {
		return nil, fmt.Errorf("detect actor: %w", err)
	}

	publisher, err := notify.Connect(ctx, settings.MQTTBroker, actor.ClientID("master"), settings.MQTTTopic)
	if err != nil {
		return nil, fmt.Errorf("connect publisher: %w", err)
	}

	return publisher, nil
}

func ensureSingleInstance() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	return common.EnsureSingleInstance(filepath.Base(self))
}
