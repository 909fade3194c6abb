package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/tui/components"
	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

// StepStartMsg is sent when a step starts executing.
type StepStartMsg struct {
	StepID string
}

// StepDoneMsg is sent when a step finishes, successfully or not.
type StepDoneMsg struct {
	Result execution.StepResult
}

// PhaseMsg is sent when the run moves to another phase.
type PhaseMsg struct {
	Phase execution.Phase
}

// RunDoneMsg is sent once the run, cleanup included, has returned.
type RunDoneMsg struct {
	Report *execution.Report
	Err    error
}

// eventMsg converts a run event into the message the progress model handles.
func eventMsg(e execution.Event) tea.Msg {
	switch e.Type {
	case execution.EventStepStarted:
		return StepStartMsg{StepID: e.StepID}
	case execution.EventStepFinished, execution.EventStepFailed:
		return StepDoneMsg{Result: e.Result}
	case execution.EventPhaseChanged:
		return PhaseMsg{Phase: e.Phase}
	}
	return nil
}

// runProgressModel is the Bubble Tea model for a live run.
type runProgressModel struct {
	progress    components.StepProgress
	spinner     components.Spinner
	styles      ui.Styles
	cancel      context.CancelFunc
	width       int
	phase       execution.Phase
	currentStep string
	completed   []execution.StepResult
	report      *execution.Report
	err         error
	done        bool
	cancelled   bool
}

// newRunProgressModel creates a progress model for total steps. cancel is
// invoked on Ctrl+C; the model keeps running until the run reports back so
// cleanup output stays visible.
func newRunProgressModel(total int, styles ui.Styles, cancel context.CancelFunc) runProgressModel {
	return runProgressModel{
		progress: components.NewStepProgress(total).
			WithWidth(ui.DefaultProgressBarWidth).
			WithStyles(styles),
		spinner:   components.NewSpinner(styles).SetMessage("Starting"),
		styles:    styles,
		cancel:    cancel,
		width:     ui.DefaultWidth,
		phase:     execution.PhaseIdle,
		completed: make([]execution.StepResult, 0, total),
	}
}

// Init initializes the model.
func (m runProgressModel) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages.
func (m runProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.styles = m.styles.WithWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.cancelled {
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			m.spinner = m.spinner.SetMessage("Cancelling, cleaning up")
		}
		return m, nil

	case PhaseMsg:
		m.phase = msg.Phase
		if msg.Phase == execution.PhaseCleaning {
			m.currentStep = ""
			m.spinner = m.spinner.SetMessage("Cleaning up")
		}
		return m, nil

	case StepStartMsg:
		m.currentStep = msg.StepID
		if !m.cancelled {
			m.spinner = m.spinner.SetMessage("Running " + msg.StepID)
		}
		return m, nil

	case StepDoneMsg:
		m.completed = append(m.completed, msg.Result)
		if msg.Result.Status() == execution.StatusFailed {
			m.progress = m.progress.MarkFailed()
		} else {
			m.progress = m.progress.MarkDone()
		}
		if m.currentStep == msg.Result.StepID().String() {
			m.currentStep = ""
		}
		return m, nil

	case RunDoneMsg:
		m.report = msg.Report
		m.err = msg.Err
		m.done = true
		if msg.Report != nil {
			m.phase = msg.Report.Phase
		}
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the model.
func (m runProgressModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Running README steps"))
	b.WriteString(" ")
	b.WriteString(m.styles.Muted.Render(PhaseLabel(m.phase)))
	b.WriteString("\n\n")

	if m.progress.Total() == 0 {
		b.WriteString(m.styles.Help.Render("No steps declared."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.progress.View())
		b.WriteString("\n\n")
	}

	if !m.done {
		b.WriteString(m.spinner.View())
		b.WriteString("\n\n")
	}

	if len(m.completed) > 0 {
		b.WriteString(m.styles.Subtitle.Render("Completed Steps"))
		b.WriteString("\n")

		start := max(0, len(m.completed)-ui.RecentStepsShown)
		for _, result := range m.completed[start:] {
			line := fmt.Sprintf("  %s %s %s",
				styledIcon(m.styles, result.Status()),
				result.StepID().String(),
				m.styles.Muted.Render(FormatDuration(result.Duration())))
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if m.done {
		b.WriteString("\n")
		switch {
		case m.report != nil && m.report.Succeeded():
			b.WriteString(m.styles.Success.Render("All steps completed successfully!"))
		case m.cancelled:
			b.WriteString(m.styles.Warning.Render("Run cancelled"))
		default:
			b.WriteString(m.styles.Error.Render("Run failed"))
		}
		b.WriteString("\n")
	} else if !m.cancelled {
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("Ctrl+C to cancel"))
	}

	return b.String()
}
