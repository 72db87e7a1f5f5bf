package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gurpartap/horizons/extraction"
)

func (c *cli) importCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Extract projects and tasks from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			document, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, rt.Close())
			}()
			if rt.Importer == nil {
				return fmt.Errorf("import needs a model: set %s", c.cfg.AI.APIKeyEnvVar)
			}

			report, runErr := rt.Importer.Run(cmd.Context(), document)
			if runErr != nil && len(report.Created)+len(report.Skipped)+len(report.Failed) == 0 {
				return runErr
			}
			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(report); err != nil {
					return err
				}
			} else if err := writeReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d project(s) failed to import", len(report.Failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func readDocument(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

func writeReport(out io.Writer, report extraction.Report) error {
	for _, title := range report.Created {
		if _, err := fmt.Fprintf(out, "created  %s\n", title); err != nil {
			return err
		}
	}
	for _, title := range report.Skipped {
		if _, err := fmt.Fprintf(out, "skipped  %s (already exists)\n", title); err != nil {
			return err
		}
	}
	for _, failure := range report.Failed {
		if _, err := fmt.Fprintf(out, "failed   %s: %s\n", failure.Title, failure.Error); err != nil {
			return err
		}
	}
	return nil
}
