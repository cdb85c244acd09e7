// Feathertrace recovers FeatherTrace crash records from the flash of
// SAMD21-based Feather boards.
//
// A sketch built with the FeatherTrace library writes a fixed-layout record
// to flash when it faults. This tool reads the flash back, finds the record
// and prints what happened:
//
//   - Fault cause and interrupt type
//   - Last marked file and line
//   - Stack trace, symbolicated when the sketch ELF is available
//   - Register snapshot for faults taken in an interrupt
//
// Flash is read with bossac over the USB bootloader, or with arm-none-eabi-gdb
// through OpenOCD. Existing dumps can be scanned offline.
//
// See 'feathertrace --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/feathertrace/internal/config"
	"github.com/muurk/feathertrace/internal/logging"
	"github.com/muurk/feathertrace/internal/version"
)

// notFoundMessage titles the failure shown when a scan finds no record.
const notFoundMessage = "Could not find FeatherTrace data! Did the device fault?"

var (
	logLevel   string
	configPath string

	// cfg is the loaded configuration file, set before any command runs
	cfg = config.Default()
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "feathertrace",
	Short: "FeatherTrace crash record recovery",
	Long: `Recover FeatherTrace crash records from Feather M0 flash.

After a FeatherTrace-enabled sketch faults, the record it saved can be read
back with this tool:
  - recover: read flash from a board and print the record
  - scan:    look for a record in a flash dump on disk
  - decode:  symbolicate addresses against the sketch ELF

Reading flash needs one of:
  - bossac, with the board in its bootloader (double-tap reset)
  - arm-none-eabi-gdb and OpenOCD with a SWD probe attached

Use 'feathertrace doctor' to check prerequisites.`,
	Version:           version.Full(),
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	Example: `  # Read a board in bootloader mode and decode the trace
  feathertrace recover /dev/ttyACM0 --elf-path build/sketch.ino.elf

  # Read through OpenOCD
  feathertrace recover --method openocd

  # Scan a dump taken earlier
  feathertrace scan flash.bin --format yaml

  # Decode addresses copied from a report
  feathertrace decode -e build/sketch.ino.elf 0x2a4d 0x3100`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from FEATHERTRACE_LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the OS config directory)")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the config file and initializes logging. The log level comes
// from --log-level, then FEATHERTRACE_LOG_LEVEL, then the config file.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		level = cfg.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	logging.Debug("Starting command", zap.String("command", cmd.CommandPath()))
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("feathertrace %s\n", version.Full())
	},
}
