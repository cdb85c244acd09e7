package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// PrintCommandHeader prints a styled command header to stdout.
func PrintCommandHeader(title, command string, params ...Param) {
	fmt.Println(NewHeader(title, command, params...).Render())
	fmt.Println()
}

// PrintSuccess prints a styled success result to stdout.
func PrintSuccess(title string, details ...Detail) {
	fmt.Println()
	fmt.Println(NewSuccessResult(title, details...).Render())
}

// PrintFailure prints a styled failure result to stderr.
func PrintFailure(title string, err error, troubleshooting []string) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, NewFailureResult(title, err, troubleshooting).Render())
}

// PrintWarning prints a styled warning result to stderr.
func PrintWarning(title string, details ...Detail) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, NewWarningResult(title, details...).Render())
}

// PrintPleaseWait prints a note before a long-running operation.
func PrintPleaseWait(message, durationHint string) {
	fmt.Println(renderPleaseWait(message, durationHint))
}

func renderPleaseWait(message, durationHint string) string {
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)
	hint := lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	line := style.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + hint.Render("("+durationHint+")")
	}
	return line + style.Render("...")
}
