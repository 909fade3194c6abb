// Package requirements verifies the tools a manifest declares before any step runs.
package requirements

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+){0,2}`)

// fallbacks lists alternative executables tried when a tool is missing.
var fallbacks = map[string][]string{
	"python": {"python3"},
	"pip":    {"pip3"},
}

// Checker runs "<tool> --version" for each requirement.
type Checker struct {
	runner ports.CommandRunner
	logger ports.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger ports.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker creates a Checker.
func NewChecker(runner ports.CommandRunner, opts ...Option) *Checker {
	c := &Checker{runner: runner, logger: ports.Discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check verifies every requirement in order and returns the first unmet one
// as a RequirementUnmet failure.
//
// A boolean value means "must be installed" (true) or "not required" (false).
// Any other value must appear in the version output, or, when it starts with
// a comparison operator (>=, >, <=, <, =), the reported version must satisfy it.
func (c *Checker) Check(ctx context.Context, reqs []manifest.Requirement) error {
	log := ports.LoggerFromContextOr(ctx, c.logger)

	for _, req := range reqs {
		if err := c.check(ctx, req); err != nil {
			log.Error(ctx, "requirement not met", ports.F("requirement", req.Name), ports.Err(err))
			return err
		}
		log.Debug(ctx, "requirement met", ports.F("requirement", req.Name), ports.F("value", req.Value))
	}
	return nil
}

func (c *Checker) check(ctx context.Context, req manifest.Requirement) error {
	want := strings.TrimSpace(req.Value)

	if required, ok := req.Bool(); ok {
		if !required {
			return nil
		}
		want = ""
	}

	output, err := c.version(ctx, req.Name)
	if err != nil {
		if errors.Is(err, ports.ErrCommandNotFound) {
			return failure.NewRequirementUnmet(req.Name, fmt.Sprintf("%s is required but not installed", req.Name), err)
		}
		return failure.NewRequirementUnmet(req.Name, fmt.Sprintf("%s is required but its version could not be determined", req.Name), err)
	}

	if want == "" {
		return nil
	}

	ok, err := Satisfies(output, want)
	if err != nil {
		return failure.NewRequirementUnmet(req.Name, err.Error(), nil)
	}
	if !ok {
		return failure.NewRequirementUnmet(req.Name, fmt.Sprintf("version mismatch: required %s, found %q", want, output), nil)
	}
	return nil
}

func (c *Checker) version(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, candidate := range append([]string{name}, fallbacks[name]...) {
		result, err := c.runner.Run(ctx, candidate, "--version")
		if err != nil {
			lastErr = err
			continue
		}
		if !result.Success() {
			lastErr = fmt.Errorf("%s --version exited with code %d", candidate, result.ExitCode)
			continue
		}
		return result.Combined(), nil
	}
	return "", lastErr
}

// Satisfies reports whether a tool's version output meets want. want is either
// a plain substring or an operator followed by a version, e.g. ">=3.10".
func Satisfies(output, want string) (bool, error) {
	op, constraint := splitConstraint(want)
	if op == "" {
		return strings.Contains(output, want), nil
	}

	cv := canonical(constraint)
	if !semver.IsValid(cv) {
		return false, fmt.Errorf("invalid version constraint %q", want)
	}

	found := versionPattern.FindString(output)
	if found == "" {
		return false, fmt.Errorf("no version number in %q", output)
	}
	v := canonical(found)
	if !semver.IsValid(v) {
		return false, fmt.Errorf("unrecognized version %q", found)
	}

	cmp := semver.Compare(v, cv)
	switch op {
	case ">=":
		return cmp >= 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case "<":
		return cmp < 0, nil
	default:
		return cmp == 0, nil
	}
}

func splitConstraint(want string) (op, version string) {
	for _, prefix := range []string{">=", "<=", ">", "<", "="} {
		if strings.HasPrefix(want, prefix) {
			return prefix, strings.TrimSpace(strings.TrimPrefix(want, prefix))
		}
	}
	return "", want
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
