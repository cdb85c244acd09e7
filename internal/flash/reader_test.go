package flash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeTool writes an executable shell script into dir.
func fakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func testBoard(t *testing.T) *Board {
	t.Helper()
	db, err := LoadBoards()
	require.NoError(t, err)
	b, err := db.Lookup(DefaultBoard)
	require.NoError(t, err)
	return b
}

func TestFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644))

	img, err := NewFileReader(path, 0x2000).Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, img.Data)
	require.Equal(t, uint32(0x2002), img.Address(2))
	require.Equal(t, path, img.Source)

	_, err = NewFileReader(filepath.Join(t.TempDir(), "missing.bin"), 0).Read(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBossacReader(t *testing.T) {
	dir := t.TempDir()
	bossac := fakeTool(t, dir, "bossac", `echo "$@" > "$(dirname "$0")/args.txt"
for last; do :; done
printf 'FEATHER' > "$last"
`)

	cfg := DefaultConfig()
	cfg.BossacPath = bossac
	cfg.WorkDir = dir

	img, err := NewBossacReader(cfg, testBoard(t), "/dev/ttyACM0", zaptest.NewLogger(t)).Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("FEATHER"), img.Data)
	require.Equal(t, uint32(0x2000), img.Base)
	require.Equal(t, "/dev/ttyACM0", img.Source)

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(args), "--port=/dev/ttyACM0 --offset=0x2000 -r "), "unexpected args %q", args)

	// The temporary image is removed once read.
	matches, err := filepath.Glob(filepath.Join(dir, "feathertrace-flash-*.bin"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestBossacReaderKeepImage(t *testing.T) {
	dir := t.TempDir()
	bossac := fakeTool(t, dir, "bossac", `for last; do :; done
printf 'KEEP' > "$last"
`)
	out := filepath.Join(dir, "flash.bin")

	cfg := DefaultConfig()
	cfg.BossacPath = bossac
	cfg.OutputPath = out
	cfg.KeepImage = true

	img, err := NewBossacReader(cfg, testBoard(t), "COM3", nil).Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, out, img.KeptPath)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "KEEP", string(data))
}

func TestBossacReaderFailure(t *testing.T) {
	dir := t.TempDir()
	bossac := fakeTool(t, dir, "bossac", `echo "No device found on COM9" >&2
exit 1
`)

	cfg := DefaultConfig()
	cfg.BossacPath = bossac
	cfg.WorkDir = dir

	_, err := NewBossacReader(cfg, testBoard(t), "COM9", nil).Read(context.Background())
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr), "expected *ToolError, got %v", err)
	require.Equal(t, 1, toolErr.ExitCode)
	require.Contains(t, toolErr.Stderr, "No device found")
}

func TestBossacReaderNoOutput(t *testing.T) {
	dir := t.TempDir()
	bossac := fakeTool(t, dir, "bossac", "exit 0\n")

	cfg := DefaultConfig()
	cfg.BossacPath = bossac
	cfg.WorkDir = dir

	_, err := NewBossacReader(cfg, testBoard(t), "COM9", nil).Read(context.Background())
	var dumpErr *DumpError
	require.True(t, errors.As(err, &dumpErr), "expected *DumpError, got %v", err)
}

func TestBossacReaderNoPort(t *testing.T) {
	_, err := NewBossacReader(DefaultConfig(), testBoard(t), "", nil).Read(context.Background())
	require.Error(t, err)
}

func TestRunToolTimeout(t *testing.T) {
	dir := t.TempDir()
	slow := fakeTool(t, dir, "slow", "exec sleep 5\n")

	_, err := runTool(context.Background(), zaptest.NewLogger(t), 100*time.Millisecond, slow)
	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "expected *TimeoutError, got %v", err)
	require.Equal(t, "slow", timeoutErr.Tool)
}

func TestOpenOCDScript(t *testing.T) {
	cfg := DefaultConfig()
	r := NewOpenOCDReader(cfg, testBoard(t), nil)

	script, err := r.Script("/tmp/out.bin")
	require.NoError(t, err)
	require.Contains(t, script, "target extended-remote localhost:3333")
	require.Contains(t, script, "dump binary memory /tmp/out.bin 0x00002000 0x00040000")
	require.Contains(t, script, successMarker)
	require.NotContains(t, script, "load")
	require.Contains(t, script, "monitor halt\n")
	require.NotContains(t, script, "reset")
}

func TestOpenOCDReader(t *testing.T) {
	dir := t.TempDir()
	// Pull the output path out of the script's dump line and write to it.
	gdb := fakeTool(t, dir, "arm-none-eabi-gdb", `script=$4
out=$(grep '^dump binary memory' "$script" | cut -d' ' -f4)
printf 'SWDDATA' > "$out"
echo "[SUCCESS]"
`)

	cfg := DefaultConfig()
	cfg.GDBPath = gdb
	cfg.WorkDir = dir

	img, err := NewOpenOCDReader(cfg, testBoard(t), zaptest.NewLogger(t)).Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("SWDDATA"), img.Data)
	require.Equal(t, "openocd://localhost:3333", img.Source)
	require.Empty(t, img.KeptPath)
	left, err := filepath.Glob(filepath.Join(dir, "feathertrace-flash-*.bin"))
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestOpenOCDReaderKeepTempImage(t *testing.T) {
	dir := t.TempDir()
	gdb := fakeTool(t, dir, "arm-none-eabi-gdb", `script=$4
out=$(grep '^dump binary memory' "$script" | cut -d' ' -f4)
printf 'SWDDATA' > "$out"
echo "[SUCCESS]"
`)

	cfg := DefaultConfig()
	cfg.GDBPath = gdb
	cfg.WorkDir = dir
	cfg.KeepImage = true

	img, err := NewOpenOCDReader(cfg, testBoard(t), nil).Read(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, img.KeptPath)
	require.Equal(t, dir, filepath.Dir(img.KeptPath))

	data, err := os.ReadFile(img.KeptPath)
	require.NoError(t, err)
	require.Equal(t, "SWDDATA", string(data))
}

func TestOpenOCDReaderNoSuccessMarker(t *testing.T) {
	dir := t.TempDir()
	gdb := fakeTool(t, dir, "arm-none-eabi-gdb", `echo "localhost:3333: Connection refused."
exit 0
`)

	cfg := DefaultConfig()
	cfg.GDBPath = gdb
	cfg.WorkDir = dir

	_, err := NewOpenOCDReader(cfg, testBoard(t), nil).Read(context.Background())
	var dumpErr *DumpError
	require.True(t, errors.As(err, &dumpErr), "expected *DumpError, got %v", err)
	require.Contains(t, dumpErr.Reason, "Connection refused")
}

func TestResolveTool(t *testing.T) {
	dir := t.TempDir()

	_, err := ResolveTool(filepath.Join(dir, "missing"), "bossac")
	var prereq *PrerequisiteError
	require.True(t, errors.As(err, &prereq))

	_, err = ResolveTool(dir, "bossac")
	require.True(t, errors.As(err, &prereq))

	t.Setenv("PATH", dir)
	_, err = ResolveTool("", "bossac")
	require.True(t, errors.As(err, &prereq))
	require.Contains(t, prereq.Details, "BOSSA")

	tool := fakeTool(t, dir, "bossac", "echo 'Basic Open Source SAM-BA Application (BOSSA) Version 1.9.1'\n")
	found, err := ResolveTool("", "bossac")
	require.NoError(t, err)
	require.Equal(t, tool, found)

	version, err := ToolVersion(context.Background(), tool, "--help")
	require.NoError(t, err)
	require.Contains(t, version, "BOSSA")
}
