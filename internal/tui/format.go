// Package tui renders docsteps runs for the terminal: the live progress view,
// the final report and the execution plan.
package tui

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

var titleCaser = cases.Title(language.English)

// StatusLabel returns a display label for a step status, e.g. "Not-Run".
func StatusLabel(status execution.StepStatus) string {
	return titleCaser.String(status.String())
}

// PhaseLabel returns a display label for a run phase.
func PhaseLabel(phase execution.Phase) string {
	return titleCaser.String(string(phase))
}

// StatusIcon returns a display icon for the given step status.
func StatusIcon(status execution.StepStatus) string {
	switch status {
	case execution.StatusDone:
		return "✓"
	case execution.StatusFailed:
		return "✗"
	case execution.StatusRunning:
		return "●"
	case execution.StatusNotRun:
		return "-"
	default:
		return "○"
	}
}

// styledIcon colors a status icon.
func styledIcon(styles ui.Styles, status execution.StepStatus) string {
	icon := StatusIcon(status)
	switch status {
	case execution.StatusDone:
		return styles.Success.Render(icon)
	case execution.StatusFailed:
		return styles.Error.Render(icon)
	case execution.StatusRunning:
		return styles.Info.Render(icon)
	default:
		return styles.Muted.Render(icon)
	}
}

// FormatDuration rounds a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
