package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-panel/internal/link"
	"github.com/oshokin/alarm-panel/internal/timeout"
)

// TestValidate checks required fields and format validations for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		settings *Config
		wantErr  bool
	}{
		{"nil", nil, true},
		{"missing link address", new(Config), true},
		{"bad link address", &Config{LinkAddress: "bad:address"}, true},
		{"simulation needs no address", &Config{Simulate: true}, false},
		{"sensor-only listen address", &Config{ListenAddress: ":50051"}, false},
		{"negative message delay", &Config{LinkAddress: "127.0.0.1:0", MessageDelay: durationPtr(-time.Second)}, true},
		{"negative poll interval", &Config{LinkAddress: "127.0.0.1:0", PollInterval: -time.Second}, true},
		{"equal literals", &Config{LinkAddress: "127.0.0.1:0", MovementLiteral: "x", IdleLiteral: "x"}, true},
		{"literal too long", &Config{LinkAddress: "127.0.0.1:0", MovementLiteral: "movement_detected_now"}, true},
		{"unknown log level", &Config{LinkAddress: "127.0.0.1:0", LogLevel: "loud"}, true},
		{"bad metrics address", &Config{LinkAddress: "127.0.0.1:0", MetricsAddress: "9100"}, true},
		{"bad broker", &Config{LinkAddress: "127.0.0.1:0", MQTTBroker: "not a uri"}, true},
		{"full", &Config{
			LinkAddress:    "127.0.0.1:50051",
			MetricsAddress: ":9100",
			MQTTBroker:     "tcp://localhost:1883",
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tc.settings)
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}
}

// TestValidate_Defaults fills unset fields.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	settings := &Config{LinkAddress: "127.0.0.1:50051", MQTTBroker: "tcp://localhost:1883"}
	require.NoError(t, Validate(settings))

	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultPollInterval, settings.PollInterval)
	require.Equal(t, timeout.DefaultWindow, settings.EntryTimeout)
	require.Equal(t, DefaultMessageDelay, settings.Delay())
	require.Equal(t, link.DefaultVocabulary, settings.Vocabulary())
	require.Equal(t, DefaultLogLevel, settings.LogLevel)
	require.Equal(t, DefaultMQTTTopic, settings.MQTTTopic)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		LinkAddress:     "127.0.0.1:50051",
		PollInterval:    250 * time.Millisecond,
		MovementLiteral: link.LegacyNodeVocabulary.Movement,
		MaskInput:       true,
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.LinkAddress, loaded.LinkAddress)
	require.Equal(t, settings.PollInterval, loaded.PollInterval)
	require.Equal(t, link.LegacyNodeVocabulary, loaded.Vocabulary())
	require.True(t, loaded.MaskInput)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.Error(t, Save(path, nil))
}

// TestLoad_Missing reports a missing file.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestRead_SkipsValidation lets callers apply overrides first.
func TestRead_SkipsValidation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mask_input: true\n"), DefaultFilePermissions))

	_, err := Load(path)
	require.Error(t, err)

	settings, err := Read(path)
	require.NoError(t, err)
	require.True(t, settings.MaskInput)

	settings.Simulate = true
	require.NoError(t, Validate(settings))
}

// TestValidate_ZeroMessageDelayKept allows turning the pauses off.
func TestValidate_ZeroMessageDelayKept(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulate: true\nmessage_delay: 0s\n"), DefaultFilePermissions))

	settings, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, settings.MessageDelay)
	require.Zero(t, settings.Delay())

	require.NoError(t, Save(path, settings))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, reloaded.Delay())
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
