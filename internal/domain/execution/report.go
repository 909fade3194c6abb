package execution

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
)

// Report is the outcome of a run.
type Report struct {
	RunID      string
	Phase      Phase
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
	Cleanup    CleanupSummary
	Err        error
}

// Succeeded reports whether every step completed.
func (r *Report) Succeeded() bool {
	return r.Err == nil && r.Phase == PhaseSucceeded
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedStep returns the id of the step that failed, or "" when the run
// failed outside a step or did not fail.
func (r *Report) FailedStep() string {
	for _, s := range r.Steps {
		if s.Status() == StatusFailed {
			return s.StepID().String()
		}
	}
	return failure.StepOf(r.Err)
}

// Counts returns how many steps ended in each status.
func (r *Report) Counts() map[StepStatus]int {
	counts := make(map[StepStatus]int)
	for _, s := range r.Steps {
		counts[s.Status()]++
	}
	return counts
}

type reportJSON struct {
	RunID      string         `json:"run_id"`
	Phase      Phase          `json:"phase"`
	Succeeded  bool           `json:"succeeded"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Error      *errorJSON     `json:"error,omitempty"`
	Steps      []stepJSON     `json:"steps"`
	Cleanup    CleanupSummary `json:"cleanup"`
}

type errorJSON struct {
	Kind       string `json:"kind,omitempty"`
	Step       string `json:"step,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type stepJSON struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Pids       []int  `json:"pids,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
	Error      string `json:"error,omitempty"`
}

// MarshalJSON renders the report for --json output.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:      r.RunID,
		Phase:      r.Phase,
		Succeeded:  r.Succeeded(),
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration().Milliseconds(),
		Steps:      make([]stepJSON, 0, len(r.Steps)),
		Cleanup:    r.Cleanup,
	}

	if r.Err != nil {
		e := &errorJSON{
			Kind:    string(failure.KindOf(r.Err)),
			Step:    r.FailedStep(),
			Message: r.Err.Error(),
		}
		var fe *failure.Error
		if errors.As(r.Err, &fe) {
			e.Suggestion = fe.Suggestion
		}
		out.Error = e
	}

	for _, s := range r.Steps {
		sj := stepJSON{
			ID:         s.StepID().String(),
			Status:     s.Status().String(),
			DurationMS: s.Duration().Milliseconds(),
			Pids:       s.Pids(),
			Stdout:     s.Stdout(),
		}
		if s.Error() != nil {
			sj.Error = s.Error().Error()
		}
		out.Steps = append(out.Steps, sj)
	}

	return json.Marshal(out)
}
