// Package ui renders styled terminal output for the feathertrace CLI.
//
// Components follow a "run once and exit" pattern: nothing here waits for
// user input.
//
//   - Header: command banner with the board, port and image parameters
//   - Progress: step list for acquire, locate and symbolicate
//   - Spinner: Bubble Tea spinner shown while bossac or GDB runs
//   - Result: success, failure and warning boxes
//
// A Runner ties these together for a multi-step command:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Fault Recovery",
//	    Command:   "feathertrace recover /dev/ttyACM0",
//	    StepNames: []string{"Read flash", "Locate record", "Decode stack trace"},
//	})
//	runner.Start()
//	err := runner.Step(ctx, 1, func(ctx context.Context) (string, error) {
//	    img, err := reader.Read(ctx)
//	    ...
//	})
//
// When stdout is not a terminal, colours and the spinner are dropped so the
// output stays readable in logs and CI.
package ui
