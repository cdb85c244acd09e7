package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/feathertrace/internal/config"
	"github.com/muurk/feathertrace/internal/flash"
	"github.com/muurk/feathertrace/internal/symbol"
	"github.com/muurk/feathertrace/internal/trace"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	fn()
	w.Close()
	os.Stdout = old
	return string(<-done)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	var err error
	out := captureStdout(t, func() {
		rootCmd.SetArgs(append(args, "--config", cfgFile))
		err = rootCmd.Execute()
	})
	return out, err
}

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flash.bin")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func TestScanJSON(t *testing.T) {
	report := &trace.FaultReport{
		Version:      1,
		Cause:        trace.CauseOutOfMemory,
		FailureCount: 2,
		Line:         77,
		File:         "buffers.cpp",
	}
	report.StackTrace[0] = 0x4410

	data := make([]byte, 0x100)
	data = append(data, trace.Encode(report)...)
	data = append(data, make([]byte, 64)...)
	path := writeImage(t, data)

	out, err := execute(t, "scan", path, "--format", "json", "--base", "0x2000", "--elf-path", "")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if got["cause"] != "OutOfMemory" {
		t.Errorf("expected cause OutOfMemory, got %v", got["cause"])
	}
	if got["record_address"] != "0x00002100" {
		t.Errorf("expected record_address 0x00002100, got %v", got["record_address"])
	}
	if _, ok := got["registers"]; ok {
		t.Error("expected no registers for a synchronous fault")
	}
}

func TestScanNotFound(t *testing.T) {
	path := writeImage(t, make([]byte, 4096))

	_, err := execute(t, "scan", path, "--format", "json", "--base", "0", "--elf-path", "")
	if !errors.Is(err, trace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScanMissingFile(t *testing.T) {
	_, err := execute(t, "scan", filepath.Join(t.TempDir(), "missing.bin"), "--format", "json", "--base", "0", "--elf-path", "")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if errors.Is(err, trace.ErrNotFound) {
		t.Errorf("expected a read error, got %v", err)
	}
}

func TestDecodeDiscardsInvalidTokens(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is only an ELF file on linux")
	}
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}
	src, err := symbol.OpenELF(exe, symbol.ELFOptions{})
	if err != nil {
		t.Skipf("test binary has no usable debug info: %v", err)
	}
	src.Close()

	out, err := execute(t, "decode", "--elf-path", exe, "--format", "text", "0x10,", "zz", "123456789")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for _, want := range []string{
		"Discarding invalid address zz\n",
		"Discarding invalid address 123456789\n",
		"Decoded stacktrace:\n",
		"\t0x00000010: unknown() at unknown:unknown\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDecodeRequiresELF(t *testing.T) {
	_, err := execute(t, "decode", "--elf-path", "", "--format", "text", "0x10")
	if err == nil || !strings.Contains(err.Error(), "--elf-path") {
		t.Errorf("expected --elf-path error, got %v", err)
	}
}

func TestDecodeNoAddresses(t *testing.T) {
	for _, elf := range []string{"", filepath.Join(t.TempDir(), "missing.elf")} {
		out, err := execute(t, "decode", "--elf-path", elf, "--format", "text")
		if err != nil {
			t.Errorf("expected no error without addresses, got %v", err)
		}
		if out != "" {
			t.Errorf("expected no output, got %q", out)
		}
	}
}

func TestRecoverRequiresPort(t *testing.T) {
	_, err := execute(t, "recover", "--method", "bossac", "--format", "text")
	if err == nil || !strings.Contains(err.Error(), "serial port") {
		t.Errorf("expected serial port error, got %v", err)
	}
}

func TestRecoverUnknownMethod(t *testing.T) {
	_, err := execute(t, "recover", "--method", "jlink", "--format", "text")
	if err == nil || !strings.Contains(err.Error(), "unknown method") {
		t.Errorf("expected unknown method error, got %v", err)
	}
}

func TestApplyConfig(t *testing.T) {
	saved := cfg
	defer func() { cfg = saved }()

	cfg = config.Default()
	cfg.Board = "feather_m0_express"
	cfg.ELFPath = "/fw/sketch.elf"
	cfg.Timeout = 45 * time.Second
	cfg.Format = "yaml"

	cmd := &cobra.Command{Use: "test"}
	addBoardFlag(cmd)
	addAnalysisFlags(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "")
	if err := cmd.Flags().Parse([]string{"--format", "json"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	applyConfig(cmd)

	if boardName != "feather_m0_express" {
		t.Errorf("expected board from config, got %q", boardName)
	}
	if elfPath != "/fw/sketch.elf" {
		t.Errorf("expected elf path from config, got %q", elfPath)
	}
	if timeout != 45*time.Second {
		t.Errorf("expected timeout from config, got %s", timeout)
	}
	if outputFormat != "json" {
		t.Errorf("expected --format to win over config, got %q", outputFormat)
	}
}

func TestReadTroubleshooting(t *testing.T) {
	tips := readTroubleshooting(&flash.PrerequisiteError{Prerequisite: "bossac"})
	if len(tips) != 1 || !strings.Contains(tips[0], "doctor") {
		t.Errorf("expected doctor hint, got %v", tips)
	}
	tips = readTroubleshooting(&flash.TimeoutError{Tool: "bossac", Timeout: "1s"})
	if !strings.Contains(strings.Join(tips, " "), "--timeout") {
		t.Errorf("expected timeout hint, got %v", tips)
	}
}

func TestHintLines(t *testing.T) {
	got := hintLines("missing prerequisite: bossac\nbossac not found in PATH\n\nError: exec failed")
	want := []string{"bossac not found in PATH", "Error: exec failed"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, got)
	}
}
