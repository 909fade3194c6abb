package tui

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

// RenderPlan lists steps in execution order with their kind, dependency and
// readiness checks.
func RenderPlan(steps []manifest.Step, styles ui.Styles) string {
	var b strings.Builder

	if len(steps) == 0 {
		b.WriteString(styles.Help.Render("No steps declared."))
		b.WriteString("\n")
		return b.String()
	}

	for i, step := range steps {
		fmt.Fprintf(&b, "%2d. %s %s",
			i+1,
			styles.Title.Render(step.ID().String()),
			styles.Muted.Render("("+step.Kind()+")"))
		if step.HasDependency() {
			b.WriteString(styles.Muted.Render(" after " + step.DependsOn().String()))
		}
		b.WriteString("\n")

		for _, command := range step.Commands() {
			b.WriteString("      $ ")
			b.WriteString(styles.Text.Render(command))
			b.WriteString("\n")
		}

		var checks []string
		for _, port := range step.ReadinessPorts() {
			checks = append(checks, fmt.Sprintf("port %d", port))
		}
		if url := step.ReadinessURL(); url != "" {
			check := "GET " + url
			if status := step.ExpectedStatus(); status != 0 {
				check += fmt.Sprintf(" -> %d", status)
			}
			checks = append(checks, check)
		}
		if want := step.ExpectedOutput(); want != "" {
			checks = append(checks, fmt.Sprintf("stdout contains %q", want))
		}
		if len(checks) > 0 {
			b.WriteString("      ")
			b.WriteString(styles.Info.Render("checks: " + strings.Join(checks, "; ")))
			b.WriteString("\n")
		}
	}

	return b.String()
}
