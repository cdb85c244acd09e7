package flash

import (
	"fmt"
	"strings"
)

// ToolError represents an external tool that ran but failed.
type ToolError struct {
	// Tool is the tool name (bossac, arm-none-eabi-gdb)
	Tool string
	// ExitCode is the process exit code, -1 if it never started
	ExitCode int
	// Stderr is the tool's stderr output
	Stderr string
	// Err is the underlying error if any
	Err error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed (exit code %d)", e.Tool, e.ExitCode)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\nstderr: " + s
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// TimeoutError represents an external tool that did not finish in time.
type TimeoutError struct {
	// Tool is the tool that timed out
	Tool string
	// Timeout is the limit that was exceeded
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s\n"+
		"Hint: Increase the limit with --timeout or check the board connection",
		e.Tool, e.Timeout)
}

// PrerequisiteError represents a missing or unusable external tool.
type PrerequisiteError struct {
	// Prerequisite is the name of the missing prerequisite
	Prerequisite string
	// Details provides additional context
	Details string
	// Underlying error
	Err error
}

func (e *PrerequisiteError) Error() string {
	msg := fmt.Sprintf("missing prerequisite: %s", e.Prerequisite)
	if e.Details != "" {
		msg += "\n" + e.Details
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\nError: %v", e.Err)
	}
	return msg
}

func (e *PrerequisiteError) Unwrap() error {
	return e.Err
}

// DumpError represents a tool run that exited cleanly but did not produce an
// image.
type DumpError struct {
	// Tool is the tool that ran
	Tool string
	// Reason describes what went wrong
	Reason string
}

func (e *DumpError) Error() string {
	return fmt.Sprintf("%s did not produce a flash image: %s", e.Tool, e.Reason)
}

// BoardUnknownError represents a board name missing from the catalog.
type BoardUnknownError struct {
	// Name is the requested board
	Name string
	// Available lists known board names
	Available []string
}

func (e *BoardUnknownError) Error() string {
	return fmt.Sprintf("unknown board %q (known boards: %s)", e.Name, strings.Join(e.Available, ", "))
}
