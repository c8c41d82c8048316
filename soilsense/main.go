package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itohio/soilsense/pkg/config"
	"github.com/itohio/soilsense/pkg/diag"
)

var (
	configPath string
	useMock    bool
	verbose    bool
	portFlag   string
	noSleep    bool

	logger *diag.Logger
	cfg    *config.Config

	// openDiag opens the diagnostic serial mirror; nil uses the real port.
	openDiag diag.Opener
)

var rootCmd = &cobra.Command{
	Use:   "soilsense",
	Short: "Soil moisture sensor node",
	Long: `soilsense samples a capacitive soil probe and the battery divider,
publishes one JSON reading to an MQTT broker and deep-sleeps until the
next cycle.

Run without arguments to start the measure, publish and sleep loop.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" || cmd.Name() == "ports" {
			return nil
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if portFlag != "" {
			loaded.ADC.Port = portFlag
		}
		if verbose {
			loaded.Diagnostics.Verbose = true
		}
		cfg = loaded

		logger, err = diag.New(cfg.Diagnostics, cmd.ErrOrStderr(), openDiag)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	RunE: runLoop,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Measure, publish and sleep until interrupted",
	RunE:  runLoop,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single cycle and exit",
	Long: `Boots, publishes one reading and enters deep sleep once. With
--no-sleep the process exits right after the publish.`,
	RunE: runOnce,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  configInit,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports usable with --port",
	Args:  cobra.NoArgs,
	RunE:  listPorts,
}

func init() {
	cobra.OnFinalize(closeLogger)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Use mocked ADC instead of the serial bridge")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug diagnostics")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "ADC bridge serial port override (e.g., COM3 or /dev/ttyACM0)")

	onceCmd.Flags().BoolVar(&noSleep, "no-sleep", false, "Exit after publishing instead of sleeping")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(portsCmd)
}

// closeLogger flushes diagnostics and releases the serial mirror. It runs
// after every command, including failed ones.
func closeLogger() {
	if logger == nil {
		return
	}
	if err := logger.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to close diagnostics:", err)
	}
	logger = nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
