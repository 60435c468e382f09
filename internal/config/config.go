package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-panel/internal/link"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/timeout"
)

// Config holds the settings shared by the master and sensor binaries.
type Config struct {
	// LinkAddress is the sensor node gRPC address the master dials.
	LinkAddress string `yaml:"link_addr"`
	// ListenAddress is where the sensor node listens. Defaults to the port of LinkAddress.
	ListenAddress string `yaml:"listen_addr,omitempty"`
	// Timeout bounds a single link round.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the cadence of link rounds while armed.
	PollInterval time.Duration `yaml:"poll_interval"`
	// EntryTimeout is the password entry inactivity window.
	EntryTimeout time.Duration `yaml:"entry_timeout"`
	// MessageDelay is how long informational screens stay visible.
	// Unset means DefaultMessageDelay; 0 disables the pauses.
	MessageDelay *time.Duration `yaml:"message_delay,omitempty"`
	// MovementLiteral is the frame text for an asserted motion input.
	MovementLiteral string `yaml:"movement_literal"`
	// IdleLiteral is the frame text otherwise.
	IdleLiteral string `yaml:"idle_literal"`
	// MaskInput echoes '*' instead of typed digits.
	MaskInput bool `yaml:"mask_input"`
	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level"`
	// MetricsAddress enables the Prometheus endpoint when set.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// MQTTBroker enables state-change events when set, e.g. tcp://localhost:1883.
	MQTTBroker string `yaml:"mqtt_broker,omitempty"`
	// MQTTTopic is where state changes are published.
	MQTTTopic string `yaml:"mqtt_topic,omitempty"`
	// SensorPin is the sysfs GPIO value file of the motion input.
	SensorPin string `yaml:"sensor_pin,omitempty"`
	// Simulate runs the sensor node in-process on the master with a software pin.
	Simulate bool `yaml:"simulate"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-panel-settings.yaml"

	// DefaultTimeout bounds a single link round.
	DefaultTimeout = 2 * time.Second

	// DefaultPollInterval is the armed polling cadence.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultMessageDelay keeps result messages on screen.
	DefaultMessageDelay = 1500 * time.Millisecond

	// DefaultMQTTTopic receives state-change events.
	DefaultMQTTTopic = "alarm-panel/state"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errLinkAddressRequired is returned when no link endpoint is configured.
	errLinkAddressRequired = errors.New("link address must be provided")
	// errNegativeDuration is returned for durations below zero.
	errNegativeDuration = errors.New("duration must not be negative")
	// errUnknownLogLevel is returned for unparsable level names.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read parses the settings file without validating it, so command line
// overrides can be applied before Validate.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
//
//nolint:cyclop // A flat list of field checks.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	switch {
	case settings.LinkAddress != "":
		if _, err := net.ResolveTCPAddr("tcp", settings.LinkAddress); err != nil {
			return fmt.Errorf("invalid link address: %w", err)
		}
	case !settings.Simulate && settings.ListenAddress == "":
		// A sensor-only file names listen_addr instead.
		return errLinkAddressRequired
	}

	for name, d := range map[string]time.Duration{
		"timeout":       settings.Timeout,
		"poll_interval": settings.PollInterval,
		"entry_timeout": settings.EntryTimeout,
		"message_delay": settings.Delay(),
	} {
		if d < 0 {
			return fmt.Errorf("%s: %w", name, errNegativeDuration)
		}
	}

	// Set defaults for unset durations.
	if settings.Timeout == 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.PollInterval == 0 {
		settings.PollInterval = DefaultPollInterval
	}

	if settings.EntryTimeout == 0 {
		settings.EntryTimeout = timeout.DefaultWindow
	}

	if settings.MessageDelay == nil {
		delay := DefaultMessageDelay
		settings.MessageDelay = &delay
	}

	if settings.MovementLiteral == "" {
		settings.MovementLiteral = link.DefaultVocabulary.Movement
	}

	if settings.IdleLiteral == "" {
		settings.IdleLiteral = link.DefaultVocabulary.Idle
	}

	if err := settings.Vocabulary().Validate(); err != nil {
		return fmt.Errorf("invalid vocabulary: %w", err)
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	if settings.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	if settings.MQTTBroker == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.MQTTBroker); err != nil {
		return fmt.Errorf("invalid MQTT broker URI: %w", err)
	}

	if settings.MQTTTopic == "" {
		settings.MQTTTopic = DefaultMQTTTopic
	}

	return nil
}

// Delay returns the configured message delay, zero when unset.
func (c *Config) Delay() time.Duration {
	if c.MessageDelay == nil {
		return 0
	}

	return *c.MessageDelay
}

// Vocabulary returns the link literals configured for both nodes.
func (c *Config) Vocabulary() link.Vocabulary {
	return link.Vocabulary{
		Movement: c.MovementLiteral,
		Idle:     c.IdleLiteral,
	}
}
