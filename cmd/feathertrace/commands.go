package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/feathertrace/internal/flash"
	"github.com/muurk/feathertrace/internal/logging"
	"github.com/muurk/feathertrace/internal/render"
	"github.com/muurk/feathertrace/internal/symbol"
	"github.com/muurk/feathertrace/internal/trace"
	"github.com/muurk/feathertrace/internal/ui"
	"github.com/muurk/feathertrace/internal/urls"
)

// Acquisition methods for recover.
const (
	methodBossac  = "bossac"
	methodOpenOCD = "openocd"
)

// Command flags
var (
	method       string
	boardName    string
	bossacPath   string
	binPath      string
	keepImage    bool
	gdbPath      string
	openocdHost  string
	openocdPort  int
	timeout      time.Duration
	elfPath      string
	demangleMode string
	outputFormat string
	baseAddress  string
)

func init() {
	recoverCmd.Flags().StringVar(&method, "method", methodBossac, "How to read flash: bossac or openocd")
	recoverCmd.Flags().StringVarP(&bossacPath, "bossac-path", "u", "", "Path to bossac (default searches PATH)")
	recoverCmd.Flags().StringVarP(&binPath, "bin-path", "b", "", "Write the raw flash image here and keep it")
	recoverCmd.Flags().BoolVar(&keepImage, "keep", false, "Keep the temporary flash image")
	recoverCmd.Flags().StringVar(&gdbPath, "gdb-path", "arm-none-eabi-gdb", "Path to arm-none-eabi-gdb")
	recoverCmd.Flags().StringVar(&openocdHost, "openocd-host", "localhost", "OpenOCD hostname")
	recoverCmd.Flags().IntVar(&openocdPort, "openocd-port", 3333, "OpenOCD GDB port")
	recoverCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Flash read timeout (e.g., 30s, 2m)")
	addBoardFlag(recoverCmd)
	addAnalysisFlags(recoverCmd)

	scanCmd.Flags().StringVar(&baseAddress, "base", "", "Device address of the first byte in FILE (default is the board's sketch start)")
	addBoardFlag(scanCmd)
	addAnalysisFlags(scanCmd)

	addAnalysisFlags(decodeCmd)

	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(decodeCmd)
}

func addBoardFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&boardName, "board", flash.DefaultBoard, "Board type (see 'feathertrace boards')")
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&elfPath, "elf-path", "e", "", "Sketch ELF with debug info, used to symbolicate the stack trace")
	cmd.Flags().StringVar(&demangleMode, "demangle", string(symbol.DemangleFull), "C++ demangling: none, simplified, templates or full")
	cmd.Flags().StringVar(&outputFormat, "format", string(render.FormatText), "Output format: text, yaml or json")
}

// applyConfig fills every flag not given on the command line from the config
// file.
func applyConfig(cmd *cobra.Command) {
	flags := cmd.Flags()
	fromConfig := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && !f.Changed {
			apply()
		}
	}
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	fromConfig("board", func() { setString(&boardName, cfg.Board) })
	fromConfig("bossac-path", func() { setString(&bossacPath, cfg.Bossac.Path) })
	fromConfig("gdb-path", func() { setString(&gdbPath, cfg.OpenOCD.GDBPath) })
	fromConfig("openocd-host", func() { setString(&openocdHost, cfg.OpenOCD.Host) })
	fromConfig("openocd-port", func() {
		if cfg.OpenOCD.Port != 0 {
			openocdPort = cfg.OpenOCD.Port
		}
	})
	fromConfig("timeout", func() {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	})
	fromConfig("elf-path", func() { setString(&elfPath, cfg.ELFPath) })
	fromConfig("demangle", func() { setString(&demangleMode, cfg.Demangle) })
	fromConfig("format", func() { setString(&outputFormat, cfg.Format) })
}

// analysisOptions are the validated output and symbolication settings.
type analysisOptions struct {
	format   render.Format
	demangle symbol.DemangleMode
}

func parseAnalysisOptions() (analysisOptions, error) {
	format, err := render.ParseFormat(outputFormat)
	if err != nil {
		return analysisOptions{}, err
	}
	mode, err := symbol.ParseDemangleMode(demangleMode)
	if err != nil {
		return analysisOptions{}, err
	}
	return analysisOptions{format: format, demangle: mode}, nil
}

// statusOutput is where progress and result boxes go. Structured reports own
// stdout, so everything else moves to stderr.
func statusOutput(format render.Format) io.Writer {
	if format == render.FormatText {
		return os.Stdout
	}
	return os.Stderr
}

func flashConfig() flash.Config {
	c := flash.DefaultConfig()
	c.BossacPath = bossacPath
	c.GDBPath = gdbPath
	c.OpenOCDHost = openocdHost
	c.OpenOCDPort = openocdPort
	c.Timeout = timeout
	c.OutputPath = binPath
	c.KeepImage = keepImage || binPath != ""
	return c
}

func lookupBoard() (*flash.Board, error) {
	db, err := flash.LoadBoards()
	if err != nil {
		return nil, fmt.Errorf("failed to load board catalog: %w", err)
	}
	return db.Lookup(boardName)
}

// recoverCmd implements the 'recover' command
var recoverCmd = &cobra.Command{
	Use:   "recover [PORT]",
	Short: "Read flash from a board and print its crash record",
	Long: `Read the sketch area of a board's flash and print the FeatherTrace record
saved there.

With --method bossac (the default) the board must be in its bootloader:
double-tap reset, then pass the bootloader's serial port. With --method
openocd, flash is read through arm-none-eabi-gdb connected to a running
OpenOCD; no port is needed.

Reading is non-destructive. The sketch keeps running after a reset.`,
	Example: `  # Bootloader on Linux
  feathertrace recover /dev/ttyACM0

  # Symbolicate and keep the image for later
  feathertrace recover /dev/ttyACM0 -e build/sketch.ino.elf -b flash.bin

  # Through OpenOCD on another host
  feathertrace recover --method openocd --openocd-host 192.168.1.20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecover,
}

func runRecover(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true
	applyConfig(cmd)

	opts, err := parseAnalysisOptions()
	if err != nil {
		return err
	}
	board, err := lookupBoard()
	if err != nil {
		return err
	}

	var reader flash.Reader
	var device string
	switch method {
	case methodBossac:
		if len(args) == 0 {
			return fmt.Errorf("a serial port is required with --method bossac")
		}
		device = args[0]
		reader = flash.NewBossacReader(flashConfig(), board, device, logging.Named("bossac"))
	case methodOpenOCD:
		device = fmt.Sprintf("%s:%d", openocdHost, openocdPort)
		reader = flash.NewOpenOCDReader(flashConfig(), board, logging.Named("openocd"))
	default:
		return fmt.Errorf("unknown method %q (valid: %s, %s)", method, methodBossac, methodOpenOCD)
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Crash Record Recovery",
		Command: "feathertrace recover",
		Params: []ui.Param{
			{Key: "Board", Value: board.String()},
			{Key: "Device", Value: device},
			{Key: "Method", Value: method},
		},
		StepNames: []string{"Read flash", "Locate record", "Symbolicate"},
		Output:    statusOutput(opts.format),
	})
	return analyze(cmd.Context(), runner, reader, opts)
}

// scanCmd implements the 'scan' command
var scanCmd = &cobra.Command{
	Use:   "scan FILE",
	Short: "Find a crash record in a flash image on disk",
	Long: `Scan a raw flash image, such as one kept by 'recover --bin-path', for a
FeatherTrace record.

--base sets the device address of the file's first byte and is only used
to report where the record lives. It defaults to the board's sketch start,
which is where bossac reads from.`,
	Example: `  feathertrace scan flash.bin
  feathertrace scan full-flash.bin --base 0 -e build/sketch.ino.elf`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true
	applyConfig(cmd)

	opts, err := parseAnalysisOptions()
	if err != nil {
		return err
	}
	board, err := lookupBoard()
	if err != nil {
		return err
	}
	base := board.SketchStart()
	if baseAddress != "" {
		v, err := strconv.ParseUint(baseAddress, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid --base %q: %w", baseAddress, err)
		}
		base = uint32(v)
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Flash Image Scan",
		Command: "feathertrace scan",
		Params: []ui.Param{
			{Key: "File", Value: args[0]},
			{Key: "Base", Value: fmt.Sprintf("0x%08x", base)},
		},
		StepNames: []string{"Read image", "Locate record", "Symbolicate"},
		Output:    statusOutput(opts.format),
	})
	return analyze(cmd.Context(), runner, flash.NewFileReader(args[0], base), opts)
}

// analyze reads an image, locates the record in it, optionally
// symbolicates the trace and prints the report to stdout.
func analyze(ctx context.Context, runner *ui.Runner, reader flash.Reader, opts analysisOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	runner.Start()

	var img *flash.Image
	err := runner.Step(ctx, 1, func(ctx context.Context) (string, error) {
		var err error
		img, err = reader.Read(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d bytes", len(img.Data)), nil
	})
	if err != nil {
		runner.Fail("Flash read failed", err, readTroubleshooting(err))
		return err
	}

	var report *trace.FaultReport
	err = runner.Step(ctx, 2, func(ctx context.Context) (string, error) {
		var err error
		report, err = trace.NewScanner(logging.Named("scan")).Locate(img.Data)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("offset %#x", report.Offset), nil
	})
	if err != nil {
		runner.Fail(notFoundMessage, err, []string{
			"Check the sketch calls FeatherTrace's startup routine",
			"Make sure the board faulted and reset before reading",
			"Uploading a new sketch erases the record",
		})
		return err
	}

	doc := &render.Document{Report: report, Source: img.Source, Base: img.Base}
	if elfPath == "" {
		runner.Skip(3, "no --elf-path")
	} else {
		err = runner.Step(ctx, 3, func(ctx context.Context) (string, error) {
			infos, err := symbolicate(elfPath, opts.demangle, report.LiveTrace())
			if err != nil {
				return "", err
			}
			doc.Symbols = infos
			return fmt.Sprintf("%d/%d resolved", countResolved(infos), len(infos)), nil
		})
		if err != nil {
			// Continue without symbols.
			runner.Warn("Symbolication failed", ui.Detail{Key: "Error", Value: err.Error()})
		}
	}

	details := []ui.Detail{
		{Key: "Fault", Value: report.Cause.String()},
		{Key: "Record Address", Value: fmt.Sprintf("0x%08x", doc.RecordAddress())},
		{Key: "Failures", Value: strconv.FormatUint(uint64(report.FailureCount), 10)},
	}
	if img.KeptPath != "" {
		details = append(details, ui.Detail{Key: "Raw Image", Value: img.KeptPath})
	}
	runner.Succeed("Found trace data", details...)
	if !report.MarkersValid {
		runner.Warn("Record markers do not match",
			ui.Detail{Key: "Bad Markers", Value: strings.Join(report.BadMarkers, ", ")},
			ui.Detail{Key: "Note", Value: "fields after a bad marker may be garbage"},
		)
	}
	fmt.Fprintln(runner.Output())

	return render.Write(os.Stdout, opts.format, doc)
}

func readTroubleshooting(err error) []string {
	var prereq *flash.PrerequisiteError
	var timeoutErr *flash.TimeoutError
	switch {
	case errors.As(err, &prereq):
		return []string{"Check prerequisites: feathertrace doctor"}
	case errors.As(err, &timeoutErr):
		return []string{
			"Double-tap reset to enter the bootloader, then retry",
			"Increase the limit with --timeout",
		}
	default:
		return []string{
			"Double-tap reset so the board is in its bootloader (the LED pulses)",
			"Bootloader guide: " + urls.FeatherM0Bootloader,
			"Check the serial port; it can change in bootloader mode",
			"Close any serial monitor holding the port",
		}
	}
}

func symbolicate(path string, mode symbol.DemangleMode, addrs []uint32) ([]symbol.Info, error) {
	src, err := symbol.OpenELF(path, symbol.ELFOptions{Demangle: mode})
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return symbol.NewSymbolicator(src, logging.Named("symbol")).Symbolicate(addrs), nil
}

func countResolved(infos []symbol.Info) int {
	n := 0
	for _, info := range infos {
		if info.Resolved() {
			n++
		}
	}
	return n
}

// decodeCmd implements the 'decode' command
var decodeCmd = &cobra.Command{
	Use:   "decode ADDR...",
	Short: "Symbolicate stack trace addresses",
	Long: `Look up addresses in the sketch ELF and print the function, file and line
for each.

Addresses are hex with an optional 0x prefix. Commas and spaces around them
are ignored, so a stack trace line can be pasted as is. Invalid tokens are
reported and skipped.`,
	Example: `  feathertrace decode -e build/sketch.ino.elf 0x00002a4d, 0x00003100
  feathertrace decode -e build/sketch.ino.elf --format json 2a4d 3100`,
	Args: cobra.ArbitraryArgs,
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true
	applyConfig(cmd)

	opts, err := parseAnalysisOptions()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	if elfPath == "" {
		return fmt.Errorf("--elf-path is required to decode addresses")
	}

	addrs, invalid := symbol.ParseTokens(args)
	for _, tokErr := range invalid {
		fmt.Fprintf(statusOutput(opts.format), "Discarding invalid address %s\n", tokErr.Token)
		logging.Warn("Discarding invalid address", zap.Int("index", tokErr.Index), zap.String("token", tokErr.Token))
	}

	infos, err := symbolicate(elfPath, opts.demangle, addrs)
	if err != nil {
		return err
	}
	return render.WriteSymbols(os.Stdout, opts.format, infos)
}
