package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/service/master"
	"github.com/oshokin/alarm-panel/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// simulate runs the sensor node in-process.
	simulate bool
	// headless logs the display instead of drawing it.
	headless bool
	// allowMultiple skips the single instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the master node.
	rootCmd = &cobra.Command{
		Use:   "alarm-master [link-address]",
		Short: "Run the alarm panel master node.",
		Long: `Runs the alarm panel: keypad, display, sounder and the arming state machine.

Keys are read from standard input: digits 0-9, '*' arms, '#' opens the menu,
'A' changes the password, 'B' cancels, 'C' erases the last digit and 'D' submits.
The display is rendered on standard output, logs go to standard error.
With --headless the display lines are logged instead.

While armed, the sensor node is polled over the Sensor Link at poll_interval.
The link address can be provided as argument or loaded from configuration file.
With --simulate the sensor node runs in-process, reading sensor_pin if set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			// Use link address argument if provided, otherwise rely on config.
			var linkAddress string
			if len(args) > 0 {
				linkAddress = args[0]
			}

			options := &master.Options{
				ConfigPath:    configPath,
				LinkAddress:   linkAddress,
				Simulate:      simulate,
				Headless:      headless,
				AllowMultiple: allowMultiple,
			}

			return master.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-master CLI and exits with non-zero status on error.
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
	rootCmd.Flags().BoolVarP(&simulate, "simulate", "s", false, "run the sensor node in-process")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "log display output instead of drawing the LCD")

	// Hidden flag for running a second panel on a development machine.
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single instance check")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}
}
