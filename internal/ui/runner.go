package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a multi-step command.
type RunnerConfig struct {
	Title     string
	Command   string
	Params    []Param
	StepNames []string
	Output    io.Writer // default os.Stdout
	// Interactive enables the spinner. NewRunner defaults it to whether
	// Output is a terminal.
	Interactive *bool
}

// Runner prints a header, then one line per step as each finishes, then a
// result box.
type Runner struct {
	config      RunnerConfig
	out         io.Writer
	header      *Header
	progress    *Progress
	interactive bool
	started     time.Time
	width       int
}

// NewRunner creates a Runner.
func NewRunner(config RunnerConfig) *Runner {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	interactive := IsTerminalWriter(out)
	if config.Interactive != nil {
		interactive = *config.Interactive
	}

	width := GetTerminalWidth()
	return &Runner{
		config:      config,
		out:         out,
		header:      NewHeader(config.Title, config.Command, config.Params...).SetWidth(width),
		progress:    NewProgress(config.StepNames...).SetWidth(width),
		interactive: interactive,
		width:       width,
	}
}

// Start prints the header.
func (r *Runner) Start() {
	r.started = time.Now()
	fmt.Fprintln(r.out, r.header.Render())
	fmt.Fprintln(r.out)
}

// Step runs fn as step n. The message fn returns is shown next to the step.
func (r *Runner) Step(ctx context.Context, n int, fn func(ctx context.Context) (string, error)) error {
	r.progress.UpdateStep(n, StepRunning, "")

	var msg string
	var err error
	if r.interactive {
		msg, err = RunWithSpinner(ctx, r.out, r.stepName(n), func() (string, error) { return fn(ctx) })
	} else {
		msg, err = fn(ctx)
	}

	if err != nil {
		r.progress.UpdateStep(n, StepFailed, msg)
	} else {
		r.progress.UpdateStep(n, StepComplete, msg)
	}
	fmt.Fprintln(r.out, r.progress.RenderStep(n))
	return err
}

// Skip marks step n as skipped with a reason.
func (r *Runner) Skip(n int, reason string) {
	r.progress.UpdateStep(n, StepSkipped, reason)
	fmt.Fprintln(r.out, r.progress.RenderStep(n))
}

// Output returns the writer the runner prints to.
func (r *Runner) Output() io.Writer {
	return r.out
}

// Elapsed returns the time since Start.
func (r *Runner) Elapsed() time.Duration {
	return time.Since(r.started).Round(time.Millisecond)
}

// Succeed prints a success box with the elapsed time appended.
func (r *Runner) Succeed(title string, details ...Detail) {
	result := NewSuccessResult(title, details...).AddDetail("Duration", r.Elapsed().String())
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, result.SetWidth(r.width).Render())
}

// Warn prints a warning box.
func (r *Runner) Warn(title string, details ...Detail) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, NewWarningResult(title, details...).SetWidth(r.width).Render())
}

// Fail prints a failure box.
func (r *Runner) Fail(title string, err error, troubleshooting []string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, NewFailureResult(title, err, troubleshooting).SetWidth(r.width).Render())
}

func (r *Runner) stepName(n int) string {
	if n < 1 || n > len(r.progress.Steps) {
		return ""
	}
	return r.progress.Steps[n-1].Name
}
