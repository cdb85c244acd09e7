package ui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type taskDoneMsg struct {
	message string
	err     error
}

// spinnerModel shows a spinner next to a label until its task finishes.
type spinnerModel struct {
	spinner spinner.Model
	label   string
	task    func() (string, error)
	done    *taskDoneMsg
}

func newSpinnerModel(label string, task func() (string, error)) spinnerModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))
	return spinnerModel{spinner: s, label: label, task: task}
}

func (m spinnerModel) Init() tea.Cmd {
	task := m.task
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		msg, err := task()
		return taskDoneMsg{message: msg, err: err}
	})
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = &msg
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done != nil {
		return ""
	}
	return "  " + m.spinner.View() + " " + StepRunningStyle.Render(m.label)
}

// RunWithSpinner runs task while a spinner with label is drawn on out. The
// task's message and error are returned unchanged.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, task func() (string, error)) (string, error) {
	p := tea.NewProgram(newSpinnerModel(label, task),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)
	final, err := p.Run()
	if m, ok := final.(spinnerModel); ok && m.done != nil {
		return m.done.message, m.done.err
	}
	if err == nil {
		err = ctx.Err()
	}
	return "", err
}
