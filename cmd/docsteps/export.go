package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/docsteps/internal/app"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/exitcode"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a README's directives into a YAML manifest",
	Long: `Export reads the directives of an annotated README (or any supported
manifest) and writes the equivalent YAML manifest.

Examples:
  docsteps export > docsteps.yaml
  docsteps export -f docs/INSTALL.md -o docsteps.yaml`,
	RunE: runExport,
}

var (
	exportFile   string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "README.md", "README or manifest to export")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")

	_ = exportCmd.RegisterFlagCompletionFunc("file", manifestFileCompletion)
}

func runExport(cmd *cobra.Command, _ []string) error {
	m, err := app.LoadManifest(exportFile, "")
	if err != nil {
		return exitcode.WithCode(exitcode.ManifestError, err)
	}

	data, err := manifest.MarshalYAML(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOutput)
	return nil
}
