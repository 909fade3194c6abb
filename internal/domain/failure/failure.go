// Package failure defines the error kinds a docsteps run can fail with.
//
// Every package of the engine reports failures through *Error so the CLI can
// name the failing step and the condition, and so callers can match a kind
// with errors.Is against the sentinel values below.
package failure

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind categorizes a run failure.
type Kind string

// Failure kinds.
const (
	KindManifestInvalid   Kind = "MANIFEST_INVALID"
	KindRequirementUnmet  Kind = "REQUIREMENT_UNMET"
	KindCommandFailed     Kind = "COMMAND_FAILED"
	KindOutputMismatch    Kind = "OUTPUT_MISMATCH"
	KindReadinessTimeout  Kind = "READINESS_TIMEOUT"
	KindUnexpectedStatus  Kind = "UNEXPECTED_STATUS"
	KindProbeUnreachable  Kind = "PROBE_UNREACHABLE"
	KindSchedulingStalled Kind = "SCHEDULING_STALLED"
)

// String returns the kind code.
func (k Kind) String() string {
	return string(k)
}

// Sentinel errors for errors.Is matching. Only the kind is compared.
var (
	ErrManifestInvalid   = &Error{Kind: KindManifestInvalid}
	ErrRequirementUnmet  = &Error{Kind: KindRequirementUnmet}
	ErrCommandFailed     = &Error{Kind: KindCommandFailed}
	ErrOutputMismatch    = &Error{Kind: KindOutputMismatch}
	ErrReadinessTimeout  = &Error{Kind: KindReadinessTimeout}
	ErrUnexpectedStatus  = &Error{Kind: KindUnexpectedStatus}
	ErrProbeUnreachable  = &Error{Kind: KindProbeUnreachable}
	ErrSchedulingStalled = &Error{Kind: KindSchedulingStalled}
)

// Error is a run failure with the step it happened in and an actionable suggestion.
type Error struct {
	Kind       Kind              // Failure category
	Message    string            // Human-readable description of the condition
	StepID     string            // Failing step, empty for run-level failures
	Suggestion string            // What the user can do about it
	Details    map[string]string // Structured context (port, url, expected, actual...)
	Underlying error             // Wrapped cause
}

// Error returns the message prefixed with the failing step.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	if e.StepID != "" {
		return fmt.Sprintf("step %q: %s", e.StepID, msg)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Format returns a multi-line rendering with code, step, details and suggestion.
func (e *Error) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)

	if e.StepID != "" {
		fmt.Fprintf(&b, "\n  Step: %s", e.StepID)
	}

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %s", k, e.Details[k])
		}
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}

	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}

	return b.String()
}

// WithStepID returns a copy of the error attributed to stepID.
func (e *Error) WithStepID(stepID string) *Error {
	c := e.clone()
	c.StepID = stepID
	return c
}

// WithSuggestion returns a copy of the error with suggestion set.
func (e *Error) WithSuggestion(suggestion string) *Error {
	c := e.clone()
	c.Suggestion = suggestion
	return c
}

// WithUnderlying returns a copy of the error wrapping err.
func (e *Error) WithUnderlying(err error) *Error {
	c := e.clone()
	c.Underlying = err
	return c
}

// Detail returns a detail value, or "" when absent.
func (e *Error) Detail(key string) string {
	return e.Details[key]
}

func (e *Error) clone() *Error {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// StepOf returns the step id carried by err's chain, or "".
func StepOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StepID
	}
	return ""
}

// AttachStep attributes err to stepID when it is an *Error that does not name a step yet.
// Other errors are returned unchanged.
func AttachStep(err error, stepID string) error {
	var fe *Error
	if errors.As(err, &fe) && fe.StepID == "" {
		return fe.WithStepID(stepID)
	}
	return err
}

// NewManifestInvalid creates a generic manifest validation error.
func NewManifestInvalid(stepID, message string) *Error {
	return &Error{
		Kind:       KindManifestInvalid,
		Message:    message,
		StepID:     stepID,
		Suggestion: "Fix the manifest before running it again; no step was executed.",
	}
}

// NewMissingDependency reports a dependency on a step that is not declared.
func NewMissingDependency(stepID, dependsOn string) *Error {
	return &Error{
		Kind:       KindManifestInvalid,
		Message:    fmt.Sprintf("depends on %q which does not exist", dependsOn),
		StepID:     stepID,
		Suggestion: "Declare the missing step or correct the depends_on value.",
		Details:    map[string]string{"depends_on": dependsOn},
	}
}

// NewDuplicateStep reports a step id declared more than once.
func NewDuplicateStep(stepID string) *Error {
	return &Error{
		Kind:       KindManifestInvalid,
		Message:    "step id declared more than once",
		StepID:     stepID,
		Suggestion: "Each step must have a unique id.",
	}
}

// NewRequirementUnmet reports a failed preflight requirement.
func NewRequirementUnmet(name, message string, err error) *Error {
	return &Error{
		Kind:       KindRequirementUnmet,
		Message:    fmt.Sprintf("requirement %q not met: %s", name, message),
		Suggestion: fmt.Sprintf("Install or upgrade %s, or pass --skip-requirements.", name),
		Details:    map[string]string{"requirement": name},
		Underlying: err,
	}
}

// NewCommandFailed reports a foreground command that exited non-zero.
func NewCommandFailed(command, stderr string, exitCode int) *Error {
	return &Error{
		Kind:    KindCommandFailed,
		Message: fmt.Sprintf("command %q exited with code %d", command, exitCode),
		Details: map[string]string{
			"command":   command,
			"exit_code": fmt.Sprintf("%d", exitCode),
			"stderr":    strings.TrimSpace(stderr),
		},
	}
}

// NewOutputMismatch reports stdout that lacks the expected substring.
func NewOutputMismatch(expected, actual string) *Error {
	return &Error{
		Kind:       KindOutputMismatch,
		Message:    fmt.Sprintf("expected output %q not found", expected),
		Suggestion: "Check the command output or update expected_output.",
		Details: map[string]string{
			"expected": expected,
			"actual":   strings.TrimSpace(actual),
		},
	}
}

// NewReadinessTimeout reports a port that never accepted a connection.
func NewReadinessTimeout(port int, timeout time.Duration, err error) *Error {
	return &Error{
		Kind:       KindReadinessTimeout,
		Message:    fmt.Sprintf("timed out after %s waiting for port %d", timeout, port),
		Suggestion: "Make sure the background service listens on the declared port, or raise --port-timeout.",
		Details: map[string]string{
			"port":    fmt.Sprintf("%d", port),
			"timeout": timeout.String(),
		},
		Underlying: err,
	}
}

// NewUnexpectedStatus reports an HTTP probe that returned the wrong status code.
func NewUnexpectedStatus(url string, expected, actual int) *Error {
	return &Error{
		Kind:    KindUnexpectedStatus,
		Message: fmt.Sprintf("expected status %d but got %d from %s", expected, actual, url),
		Details: map[string]string{
			"url":      url,
			"expected": fmt.Sprintf("%d", expected),
			"actual":   fmt.Sprintf("%d", actual),
		},
	}
}

// NewProbeUnreachable reports an HTTP probe whose request could not complete.
func NewProbeUnreachable(url string, err error) *Error {
	return &Error{
		Kind:       KindProbeUnreachable,
		Message:    fmt.Sprintf("failed to reach %s", url),
		Suggestion: "Check that the service is running and the URL is correct.",
		Details:    map[string]string{"url": url},
		Underlying: err,
	}
}

// NewSchedulingStalled reports a scan pass that made no progress.
func NewSchedulingStalled(pending []string) *Error {
	return &Error{
		Kind:       KindSchedulingStalled,
		Message:    fmt.Sprintf("no runnable step among pending steps: %s", strings.Join(pending, ", ")),
		Suggestion: "Look for steps that depend on each other in a cycle.",
		Details:    map[string]string{"pending": strings.Join(pending, ",")},
	}
}
