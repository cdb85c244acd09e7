package flash

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/muurk/feathertrace/internal/logging"
)

//go:embed templates/dump_flash.gdb.tmpl
var dumpFlashTemplate string

const successMarker = "[SUCCESS]"

// OpenOCDReader dumps flash through arm-none-eabi-gdb attached to OpenOCD.
// This works on a board whose USB bootloader is unusable, as long as an SWD
// probe is connected.
type OpenOCDReader struct {
	config Config
	board  *Board
	logger *zap.Logger
}

// NewOpenOCDReader creates a reader for board.
func NewOpenOCDReader(config Config, board *Board, logger *zap.Logger) *OpenOCDReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenOCDReader{config: config, board: board, logger: logger}
}

// dumpParams are the values available to the dump script template.
type dumpParams struct {
	OpenOCDHost  string
	OpenOCDPort  int
	StartAddress uint32
	EndAddress   uint32
	Size         uint32
	OutputFile   string
}

// Script renders the GDB script that dumps into outputFile.
func (r *OpenOCDReader) Script(outputFile string) (string, error) {
	tmpl, err := template.New("dump_flash").Parse(dumpFlashTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	start := r.board.SketchStart()
	params := dumpParams{
		OpenOCDHost:  r.config.OpenOCDHost,
		OpenOCDPort:  r.config.OpenOCDPort,
		StartAddress: start,
		EndAddress:   start + r.board.SketchSize(),
		Size:         r.board.SketchSize(),
		OutputFile:   outputFile,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (r *OpenOCDReader) Read(ctx context.Context) (*Image, error) {
	gdb, err := ResolveTool(r.config.GDBPath, "arm-none-eabi-gdb")
	if err != nil {
		return nil, err
	}

	path, cleanup, err := imagePath(r.config, "feathertrace-flash-*.bin")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	rendered, err := r.Script(path)
	if err != nil {
		return nil, err
	}
	scriptFile, err := writeScript(r.config.WorkDir, rendered)
	if err != nil {
		return nil, err
	}
	defer os.Remove(scriptFile)

	r.logger.Debug("Rendered GDB dump script", zap.String("file", scriptFile), zap.String("content", rendered))

	res, err := runTool(ctx, r.logger, r.config.Timeout, gdb, "-batch", "-nx", "-x", scriptFile)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(res.Stdout, successMarker) {
		return nil, &DumpError{Tool: "arm-none-eabi-gdb", Reason: gdbFailureReason(res.Stdout + res.Stderr)}
	}

	data, err := readImage("arm-none-eabi-gdb", path)
	if err != nil {
		return nil, err
	}
	source := fmt.Sprintf("openocd://%s:%d", r.config.OpenOCDHost, r.config.OpenOCDPort)
	img := &Image{Data: data, Base: r.board.SketchStart(), Source: source}
	logging.LogImage(source, img.Base, data)
	keep(r.config, r.logger, img, path)
	return img, nil
}

func writeScript(dir, content string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	file, err := os.CreateTemp(dir, "feathertrace-gdb-*.gdb")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write script content: %w", err)
	}
	return file.Name(), nil
}

// gdbFailureReason picks the most useful line from GDB output.
func gdbFailureReason(output string) string {
	if strings.Contains(output, "Cannot access memory") {
		return "cannot access flash memory, is the target powered?"
	}
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "connection refused") || strings.Contains(lower, "error") {
			return strings.TrimSpace(line)
		}
	}
	return "success marker not found in GDB output"
}
