package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/exposure/pkg/exposure"
	"github.com/codeGROOVE-dev/exposure/pkg/profile"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan <batch.json|->",
	Short: "Validate a batch of listings and project exposure",
	Long: `Validate every observation in a batch against the reference profile and
project the strong matches onto related catalogs. The report is written to
stdout as JSON.

The batch is a JSON document of the form:

  {"profile": {"full_name": "Jane Doe", ...},
   "observations": [{"source": "spokeo", "record": {"name": "Jane Doe", ...}}]}

Example:
  exposure scan batch.json
  cat batch.json | exposure scan -`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
}

type batch struct {
	Profile      *profile.Reference     `json:"profile"`
	Observations []exposure.Observation `json:"observations"`
}

func runScan(cmd *cobra.Command, args []string) error {
	b, err := readBatch(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	_, logger, scanner, err := setup(cmd, nil)
	if err != nil {
		return err
	}

	report, err := scanner.Scan(cmd.Context(), b.Profile, b.Observations)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	logger.Debug("report ready", "id", report.ID)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// readBatch decodes a batch from path, or from stdin when path is "-".
func readBatch(stdin io.Reader, path string) (*batch, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open batch: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only
		r = f
	}
	var b batch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", path, err)
	}
	return &b, nil
}
