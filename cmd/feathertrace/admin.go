package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/feathertrace/internal/config"
	"github.com/muurk/feathertrace/internal/flash"
	"github.com/muurk/feathertrace/internal/ui"
)

var forceInit bool

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	addBoardFlag(doctorCmd)
	doctorCmd.Flags().StringVarP(&bossacPath, "bossac-path", "u", "", "Path to bossac (default searches PATH)")
	doctorCmd.Flags().StringVar(&gdbPath, "gdb-path", "arm-none-eabi-gdb", "Path to arm-none-eabi-gdb")
	doctorCmd.Flags().StringVar(&openocdHost, "openocd-host", "localhost", "OpenOCD hostname")
	doctorCmd.Flags().IntVar(&openocdPort, "openocd-port", 3333, "OpenOCD GDB port")

	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}

// boardsCmd implements the 'boards' command
var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List supported boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		db, err := flash.LoadBoards()
		if err != nil {
			return fmt.Errorf("failed to load board catalog: %w", err)
		}

		fmt.Println(ui.NewHeader("Supported Boards", "feathertrace boards").Render())
		fmt.Println()
		for _, b := range db.List() {
			fmt.Println(ui.RenderBoardLine(b.Name, b.Description))
			fmt.Printf("    MCU:    %s\n", b.MCU)
			fmt.Printf("    Flash:  0x%08x-0x%08x\n", b.FlashBase, b.FlashBase+b.FlashSize)
			fmt.Printf("    Sketch: 0x%08x (%d KiB)\n", b.SketchStart(), b.SketchSize()/1024)
		}
		return nil
	},
}

// configCmd groups the config file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the feathertrace configuration file.

The file holds defaults for board, tool paths, OpenOCD address, timeout, ELF
path, demangling and output format. Flags given on the command line always
win.`,
}

// configInitCmd implements the 'config init' command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check config file: %w", err)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		ui.PrintSuccess("Configuration written", ui.Detail{Key: "Path", Value: path})
		return nil
	},
}

// configShowCmd implements the 'config show' command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Printf("# %s\n%s", path, data)
		return nil
	},
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// doctorCmd implements the 'doctor' command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check flash reading prerequisites",
	Long: `Check the tools each recover method needs:
  - bossac for --method bossac
  - arm-none-eabi-gdb and a reachable OpenOCD for --method openocd

One working method is enough.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true
	applyConfig(cmd)

	board, err := lookupBoard()
	if err != nil {
		return err
	}

	ui.PrintCommandHeader("Setup Verification", "feathertrace doctor",
		ui.Param{Key: "Board", Value: board.String()},
		ui.Param{Key: "OpenOCD", Value: fmt.Sprintf("%s:%d", openocdHost, openocdPort)},
	)

	ui.PrintPleaseWait("Checking prerequisites", "up to 10 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bossacDetail, bossacErr := checkTool(ctx, bossacPath, "bossac", "--help")
	gdbDetail, gdbErr := checkTool(ctx, gdbPath, "arm-none-eabi-gdb", "--version")
	openocdErr := flash.ValidateOpenOCDConnection(ctx, openocdHost, openocdPort)

	details := []ui.Detail{
		{Key: "bossac", Value: bossacDetail},
		{Key: "GDB", Value: gdbDetail},
		{Key: "OpenOCD", Value: statusText(openocdErr, "connected")},
	}

	bossacReady := bossacErr == nil
	openocdReady := gdbErr == nil && openocdErr == nil
	if !bossacReady && !openocdReady {
		var troubleshooting []string
		for _, err := range []error{bossacErr, gdbErr, openocdErr} {
			if err != nil {
				troubleshooting = append(troubleshooting, hintLines(err.Error())...)
			}
		}
		ui.PrintFailure("No flash reading method available", errors.Join(bossacErr, gdbErr, openocdErr), troubleshooting)
		return fmt.Errorf("setup verification failed")
	}

	ui.PrintSuccess("Setup verification complete", details...)
	if !bossacReady || !openocdReady {
		missing := methodOpenOCD
		if !bossacReady {
			missing = methodBossac
		}
		ui.PrintWarning("One method unavailable", ui.Detail{Key: "Unavailable", Value: "--method " + missing})
	}
	return nil
}

// checkTool resolves a tool and reads its version line.
func checkTool(ctx context.Context, path, name string, versionArgs ...string) (string, error) {
	resolved, err := flash.ResolveTool(path, name)
	if err != nil {
		return "not found", err
	}
	v, err := flash.ToolVersion(ctx, resolved, versionArgs...)
	if err != nil {
		return resolved + " (not runnable)", err
	}
	return fmt.Sprintf("%s (%s)", resolved, v), nil
}

func statusText(err error, ok string) string {
	if err != nil {
		return "unavailable"
	}
	return ok
}

// hintLines returns the non-empty lines after the first of a multi-line
// error message.
func hintLines(msg string) []string {
	var out []string
	for i, line := range strings.Split(msg, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(line))
	}
	return out
}
