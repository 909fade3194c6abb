package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

// RenderReport renders the outcome of a run as text.
func RenderReport(report *execution.Report, styles ui.Styles) string {
	var b strings.Builder

	header := fmt.Sprintf("Run %s", shortID(report.RunID))
	b.WriteString(styles.Title.Render(header))
	b.WriteString(" ")
	if report.Succeeded() {
		b.WriteString(styles.Success.Render(PhaseLabel(report.Phase)))
	} else {
		b.WriteString(styles.Error.Render(PhaseLabel(report.Phase)))
	}
	b.WriteString(styles.Muted.Render(" in " + FormatDuration(report.Duration())))
	b.WriteString("\n\n")

	if len(report.Steps) == 0 {
		b.WriteString(styles.Help.Render("No steps declared."))
		b.WriteString("\n")
	}

	width := 0
	for _, s := range report.Steps {
		width = max(width, len(s.StepID().String()))
	}

	for _, s := range report.Steps {
		line := fmt.Sprintf("%s %-*s  %-8s %s",
			styledIcon(styles, s.Status()),
			width, s.StepID().String(),
			StatusLabel(s.Status()),
			FormatDuration(s.Duration()))
		if pids := s.Pids(); len(pids) > 0 {
			line += styles.Muted.Render(fmt.Sprintf("  pid %s", joinInts(pids)))
		}
		b.WriteString("  ")
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render("Cleanup"))
	b.WriteString(" ")
	b.WriteString(cleanupLine(report.Cleanup))
	b.WriteString("\n")

	if report.Err != nil {
		b.WriteString("\n")
		b.WriteString(styles.Panel.Render(styles.Error.Render(describeError(report.Err))))
		b.WriteString("\n")
	}

	return b.String()
}

func cleanupLine(c execution.CleanupSummary) string {
	parts := []string{fmt.Sprintf("%d command(s)", c.CommandsRun)}
	if c.CommandsFailed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", c.CommandsFailed))
	}
	parts = append(parts, fmt.Sprintf("%d process(es) terminated", c.Terminated))
	if c.Killed > 0 {
		parts = append(parts, fmt.Sprintf("%d killed", c.Killed))
	}
	return strings.Join(parts, ", ")
}

// describeError renders a failure with its code, step and suggestion.
func describeError(err error) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe.Format()
	}
	return err.Error()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
