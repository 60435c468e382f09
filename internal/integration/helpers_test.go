package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/service/sensor"
)

// writePin stores a motion input level in a value file.
func writePin(t *testing.T, path, level string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(level+"\n"), config.DefaultFilePermissions))
}

// startSensor runs a sensor node on a free local port with the given literal
// and pin level. It returns the node address, the pin file and a stop function.
func startSensor(t *testing.T, movementLiteral, level string) (addr, pin string, stop func()) {
	t.Helper()

	dir := t.TempDir()
	pin = filepath.Join(dir, "motion")
	writePin(t, pin, level)

	cfgPath := filepath.Join(dir, "sensor-settings.yaml")
	require.NoError(t, config.Save(cfgPath, &config.Config{
		ListenAddress:   "127.0.0.1:0",
		SensorPin:       pin,
		MovementLiteral: movementLiteral,
		LogLevel:        "warn",
	}))

	ctx, cancel := context.WithCancel(context.Background())
	listening := make(chan string, 1)
	done := make(chan error, 1)

	go func() {
		done <- sensor.Run(ctx, &sensor.Options{
			ConfigPath: cfgPath,
			Listening:  func(address string) { listening <- address },
		})
	}()

	select {
	case addr = <-listening:
	case err := <-done:
		cancel()
		t.Fatalf("sensor stopped early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("sensor did not start")
	}

	return addr, pin, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// writeMasterSettings stores a master config pointing at addr.
func writeMasterSettings(t *testing.T, addr string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "master-settings.yaml")
	require.NoError(t, config.Save(path, &config.Config{
		LinkAddress:  addr,
		Timeout:      time.Second,
		PollInterval: 5 * time.Millisecond,
		MessageDelay: durationPtr(time.Millisecond),
		LogLevel:     "warn",
	}))

	return path
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
