package flash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/feathertrace/internal/logging"
)

// Config holds settings shared by the external-tool readers.
type Config struct {
	// BossacPath is the path to bossac.
	// Default: "" (searches PATH)
	BossacPath string

	// GDBPath is the path to the arm-none-eabi-gdb binary.
	// Default: "arm-none-eabi-gdb"
	GDBPath string

	// OpenOCDHost is the hostname/IP where OpenOCD is running.
	// Default: "localhost"
	OpenOCDHost string

	// OpenOCDPort is the GDB port OpenOCD listens on.
	// Default: 3333
	OpenOCDPort int

	// Timeout is the maximum time an external tool may run.
	// Default: 2 minutes
	Timeout time.Duration

	// WorkDir is where temporary images and scripts are written.
	// Default: os.TempDir()
	WorkDir string

	// OutputPath, when set, is where the raw image is written instead of a
	// temporary file.
	OutputPath string

	// KeepImage keeps the raw image on disk after it has been read.
	KeepImage bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GDBPath:     "arm-none-eabi-gdb",
		OpenOCDHost: "localhost",
		OpenOCDPort: 3333,
		Timeout:     2 * time.Minute,
		WorkDir:     os.TempDir(),
	}
}

// toolResult is the captured outcome of an external tool run.
type toolResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
}

// runTool runs path with args under timeout, capturing its output. A non-zero
// exit is returned as a *ToolError and an expired timeout as a *TimeoutError.
func runTool(ctx context.Context, logger *zap.Logger, timeout time.Duration, path string, args ...string) (*toolResult, error) {
	tool := filepath.Base(path)
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("Running external tool",
		zap.String("tool", tool),
		zap.String("path", path),
		zap.Strings("args", args),
		zap.Duration("timeout", timeout),
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(timeoutCtx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := &toolResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	}
	logging.LogToolRun(tool, args, res.ExitCode, res.Elapsed)
	logger.Debug("External tool output",
		zap.String("tool", tool),
		zap.String("stdout", res.Stdout),
		zap.String("stderr", res.Stderr),
	)

	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return res, &TimeoutError{Tool: tool, Timeout: timeout.String()}
	}
	if err != nil {
		return res, &ToolError{Tool: tool, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}

// imagePath picks where a tool should write its image. The returned cleanup
// removes the file unless the caller asked to keep it.
func imagePath(cfg Config, pattern string) (string, func(), error) {
	if cfg.OutputPath != "" {
		path := cfg.OutputPath
		return path, func() {
			if !cfg.KeepImage {
				os.Remove(path)
			}
		}, nil
	}

	dir := cfg.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	// The tool creates the file itself; some refuse to overwrite.
	os.Remove(path)
	return path, func() {
		if !cfg.KeepImage {
			os.Remove(path)
		}
	}, nil
}

// keep records where a kept image lives.
func keep(cfg Config, logger *zap.Logger, img *Image, path string) {
	if !cfg.KeepImage {
		return
	}
	img.KeptPath = path
	logger.Info("Kept raw flash image", zap.String("path", path))
}

// readImage loads a dumped image and checks it is not empty.
func readImage(tool, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &DumpError{Tool: tool, Reason: fmt.Sprintf("%s was not created", path)}
		}
		return nil, fmt.Errorf("failed to read flash image: %w", err)
	}
	if len(data) == 0 {
		return nil, &DumpError{Tool: tool, Reason: fmt.Sprintf("%s is empty", path)}
	}
	return data, nil
}
