package flash

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/muurk/feathertrace/internal/urls"
)

// ResolveTool returns path if set, otherwise looks name up on PATH.
func ResolveTool(path, name string) (string, error) {
	if path == "" {
		found, err := exec.LookPath(name)
		if err != nil {
			return "", &PrerequisiteError{
				Prerequisite: name,
				Details:      fmt.Sprintf("%s not found in PATH, %s", name, installHint(name)),
				Err:          err,
			}
		}
		return found, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &PrerequisiteError{
			Prerequisite: name,
			Details:      fmt.Sprintf("invalid %s path %s", name, path),
			Err:          err,
		}
	}
	if info.IsDir() {
		return "", &PrerequisiteError{
			Prerequisite: name,
			Details:      fmt.Sprintf("%s is a directory", path),
		}
	}
	return path, nil
}

func installHint(name string) string {
	switch name {
	case "bossac":
		return "install BOSSA (" + urls.BOSSA + ") or pass --bossac-path"
	case "arm-none-eabi-gdb":
		return "install the Arm GNU toolchain (" + urls.ArmToolchain + ") or pass --gdb-path"
	default:
		return "install it or pass its path explicitly"
	}
}

// ToolVersion runs path with versionArgs and returns the first line of its
// output. It fails with a *PrerequisiteError if the tool cannot run.
func ToolVersion(ctx context.Context, path string, versionArgs ...string) (string, error) {
	versionCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// bossac prints its help and exits non-zero for unknown flags, so the
	// combined output is used whatever the exit code.
	output, err := exec.CommandContext(versionCtx, path, versionArgs...).CombinedOutput()
	first := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if first == "" && err != nil {
		return "", &PrerequisiteError{
			Prerequisite: path,
			Details:      fmt.Sprintf("failed to execute %s %s", path, strings.Join(versionArgs, " ")),
			Err:          err,
		}
	}
	return first, nil
}

// ValidateOpenOCDConnection checks that OpenOCD accepts connections.
func ValidateOpenOCDConnection(ctx context.Context, host string, port int) error {
	address := net.JoinHostPort(host, fmt.Sprint(port))
	dialer := net.Dialer{Timeout: 2 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return &PrerequisiteError{
			Prerequisite: "OpenOCD",
			Details: fmt.Sprintf("cannot connect to OpenOCD at %s\n"+
				"Start it with: openocd -f interface/<probe>.cfg -f target/at91samdXX.cfg\n"+
				"See %s", address, urls.OpenOCD),
			Err: err,
		}
	}
	return conn.Close()
}
