// Package components provides the bubbletea building blocks of the run view.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

// StepProgress displays how many steps of a run have finished.
// Failed steps are drawn in the error color at the end of the filled part.
type StepProgress struct {
	total  int
	done   int
	failed int
	width  int
	styles ui.Styles
}

// NewStepProgress creates a progress bar for total steps.
func NewStepProgress(total int) StepProgress {
	if total < 0 {
		total = 0
	}
	return StepProgress{
		total:  total,
		width:  ui.DefaultProgressBarWidth,
		styles: ui.DefaultStyles(),
	}
}

// Total returns the number of steps in the run.
func (p StepProgress) Total() int {
	return p.total
}

// Done returns the number of steps that completed.
func (p StepProgress) Done() int {
	return p.done
}

// Failed returns the number of steps that failed.
func (p StepProgress) Failed() int {
	return p.failed
}

// Finished returns completed plus failed steps.
func (p StepProgress) Finished() int {
	return p.done + p.failed
}

// Percent returns the finished fraction (0.0 to 1.0).
func (p StepProgress) Percent() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.Finished()) / float64(p.total)
}

// MarkDone records a completed step.
func (p StepProgress) MarkDone() StepProgress {
	if p.Finished() < p.total {
		p.done++
	}
	return p
}

// MarkFailed records a failed step.
func (p StepProgress) MarkFailed() StepProgress {
	if p.Finished() < p.total {
		p.failed++
	}
	return p
}

// WithWidth sets the bar width, brackets included.
func (p StepProgress) WithWidth(width int) StepProgress {
	if width < 4 {
		width = 4
	}
	p.width = width
	return p
}

// WithStyles sets the styles.
func (p StepProgress) WithStyles(styles ui.Styles) StepProgress {
	p.styles = styles
	return p
}

// View renders the bar followed by the step count.
func (p StepProgress) View() string {
	barWidth := p.width - 2
	ok, bad := 0, 0
	if p.total > 0 {
		ok = p.done * barWidth / p.total
		bad = p.Finished()*barWidth/p.total - ok
	}
	empty := barWidth - ok - bad

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(p.styles.ProgressBar.Render(strings.Repeat("█", ok)))
	b.WriteString(p.styles.Error.Render(strings.Repeat("█", bad)))
	b.WriteString(strings.Repeat("░", empty))
	b.WriteString("]")
	fmt.Fprintf(&b, " %d/%d steps", p.Finished(), p.total)
	return b.String()
}

// Spinner displays an animated spinner with optional message.
type Spinner struct {
	spinner spinner.Model
	message string
}

// NewSpinner creates a new spinner component.
func NewSpinner(styles ui.Styles) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return Spinner{spinner: s}
}

// Message returns the current message.
func (s Spinner) Message() string {
	return s.message
}

// SetMessage sets the spinner message.
func (s Spinner) SetMessage(message string) Spinner {
	s.message = message
	return s
}

// Init returns the initial command for the spinner.
func (s Spinner) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update handles spinner animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner.
func (s Spinner) View() string {
	if s.message != "" {
		return fmt.Sprintf("%s %s", s.spinner.View(), s.message)
	}
	return s.spinner.View()
}
