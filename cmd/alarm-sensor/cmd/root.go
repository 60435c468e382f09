package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/service/sensor"
	"github.com/oshokin/alarm-panel/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// sensorPin is the motion input value file.
	sensorPin string

	// rootCmd represents the base command for running the sensor node.
	rootCmd = &cobra.Command{
		Use:   "alarm-sensor [listen-address]",
		Short: "Run the alarm panel sensor node.",
		Long: `Starts the sensor node that answers Sensor Link rounds from the master.

Every round samples the motion input once and answers with the movement or
idle literal, padded to a 20-byte frame. The node has no timing of its own.

The node listens on listen_addr, or on the port of link_addr when unset.
Listen address can be provided as argument to override config (e.g., :9090).
The motion input is a sysfs GPIO value file such as /sys/class/gpio/gpio5/value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &sensor.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				SensorPin:     sensorPin,
			}

			return sensor.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-sensor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&sensorPin, "pin", "p", "", "path to the motion input value file")
}
