package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

// RunFunc executes a run, reporting progress to the observer.
type RunFunc func(ctx context.Context, observer execution.Observer) (*execution.Report, error)

// ProgressOptions configures the live progress display.
type ProgressOptions struct {
	Styles      ui.Styles
	ProgramOpts []tea.ProgramOption
}

// NewProgressOptions creates default progress options.
func NewProgressOptions() ProgressOptions {
	return ProgressOptions{Styles: ui.DefaultStyles()}
}

// WithStyles sets the styles used by the display.
func (o ProgressOptions) WithStyles(styles ui.Styles) ProgressOptions {
	o.Styles = styles
	return o
}

// WithProgramOptions appends Bubble Tea program options, e.g. custom input
// and output for tests.
func (o ProgressOptions) WithProgramOptions(opts ...tea.ProgramOption) ProgressOptions {
	o.ProgramOpts = append(o.ProgramOpts, opts...)
	return o
}

// RunProgress drives run in the background while rendering live progress for
// total steps. It returns once run has returned, so cleanup has finished
// even when the user cancels.
func RunProgress(ctx context.Context, total int, run RunFunc, opts ProgressOptions) (*execution.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newRunProgressModel(total, opts.Styles, cancel)
	p := tea.NewProgram(model, opts.ProgramOpts...)

	finished := make(chan RunDoneMsg, 1)
	go func() {
		observer := execution.ObserverFunc(func(e execution.Event) {
			if msg := eventMsg(e); msg != nil {
				p.Send(msg)
			}
		})
		report, err := run(runCtx, observer)
		done := RunDoneMsg{Report: report, Err: err}
		finished <- done
		p.Send(done)
	}()

	finalModel, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-finished
		return nil, fmt.Errorf("progress display failed: %w", err)
	}

	result := <-finished

	if m, ok := finalModel.(runProgressModel); ok && m.done {
		return m.report, m.err
	}
	return result.Report, result.Err
}
