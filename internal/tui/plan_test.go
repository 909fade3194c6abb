package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

func TestRenderPlan(t *testing.T) {
	t.Parallel()

	m, err := manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "install", Commands: []string{"npm install"}}).
		AddStep(manifest.StepSpec{
			ID:             "server",
			Commands:       []string{"npm start"},
			DependsOn:      "install",
			Background:     true,
			ReadinessPorts: []int{3000},
			ReadinessURL:   "http://localhost:3000/health",
			ExpectedStatus: 200,
		}).
		Build()
	require.NoError(t, err)

	steps, err := m.ExecutionOrder()
	require.NoError(t, err)

	out := RenderPlan(steps, ui.PlainStyles())

	assert.Contains(t, out, " 1. install")
	assert.Contains(t, out, "$ npm install")
	assert.Contains(t, out, " 2. server (background) after install")
	assert.Contains(t, out, "port 3000; GET http://localhost:3000/health -> 200")
}

func TestRenderPlan_Empty(t *testing.T) {
	t.Parallel()

	assert.Contains(t, RenderPlan(nil, ui.PlainStyles()), "No steps declared.")
}
