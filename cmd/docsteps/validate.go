package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/docsteps/internal/app"
	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/exitcode"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a manifest without running it",
	Long: `Validate parses the README or manifest, checks step ids and dependencies
and prints the execution order. Nothing is executed.

Exit codes:
  0 - Valid manifest
  2 - The manifest could not be read or is invalid

Examples:
  docsteps validate
  docsteps validate -f docsteps.yaml --json`,
	RunE: runValidate,
}

var (
	validateFile string
	validateJSON bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "README.md", "README or manifest to validate")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output results as JSON")

	_ = validateCmd.RegisterFlagCompletionFunc("file", manifestFileCompletion)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	steps, err := loadOrdered(validateFile)
	if validateJSON {
		if jsonErr := outputValidationJSON(out, steps, err); jsonErr != nil {
			return jsonErr
		}
		if err != nil {
			return exitcode.WithCode(exitcode.ManifestError, nil)
		}
		return nil
	}

	if err != nil {
		return exitcode.WithCode(exitcode.ManifestError, err)
	}

	_, _ = fmt.Fprintf(out, "%s is valid: %d step(s)\n", validateFile, len(steps))
	for i, step := range steps {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, step.ID().String())
	}
	return nil
}

// loadOrdered loads a manifest and returns its steps in execution order.
func loadOrdered(path string) ([]manifest.Step, error) {
	m, err := app.LoadManifest(path, "")
	if err != nil {
		return nil, err
	}
	return m.ExecutionOrder()
}

func outputValidationJSON(w io.Writer, steps []manifest.Step, err error) error {
	output := struct {
		Valid  bool     `json:"valid"`
		Steps  []string `json:"steps,omitempty"`
		Error  string   `json:"error,omitempty"`
		Kind   string   `json:"kind,omitempty"`
		StepID string   `json:"step,omitempty"`
	}{}

	if err != nil {
		output.Error = err.Error()
		output.Kind = failure.KindOf(err).String()
		output.StepID = failure.StepOf(err)
	} else {
		output.Valid = true
		for _, step := range steps {
			output.Steps = append(output.Steps, step.ID().String())
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
