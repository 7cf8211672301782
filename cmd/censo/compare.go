package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/compare"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a pipeline output CSV against a reference run",
	Long: `Aligns the candidate CSV to the reference on the key columns and scores
every other shared column. Numeric cells within the tolerance count as equal.
Prints the JSON report, or writes it to --output-json and prints a summary.`,
	RunE: runCompareCmd,
}

var compareFlags struct {
	reference  string
	candidate  string
	keys       []string
	tolerance  float64
	outputJSON string
	strict     bool
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareFlags.reference, "reference", "", "Reference CSV")
	f.StringVar(&compareFlags.candidate, "candidate", "", "Candidate CSV to evaluate")
	f.StringSliceVarP(&compareFlags.keys, "key", "k", []string{"CD_MUN", "idade_grupo", "sexo"}, "Key columns")
	f.Float64Var(&compareFlags.tolerance, "tolerance", 0, "Absolute tolerance for numeric cells")
	f.StringVar(&compareFlags.outputJSON, "output-json", "", "Optional path to write the JSON report")
	f.BoolVar(&compareFlags.strict, "strict", false, "Fail unless the tables are identical")
	_ = compareCmd.MarkFlagRequired("reference")
	_ = compareCmd.MarkFlagRequired("candidate")
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	report, err := compare.Files(compareFlags.reference, compareFlags.candidate, compareFlags.keys, compareFlags.tolerance)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	out := cmd.OutOrStdout()
	if compareFlags.outputJSON != "" {
		if err := os.MkdirAll(filepath.Dir(compareFlags.outputJSON), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(compareFlags.outputJSON, append(payload, '\n'), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "Wrote JSON report: %s\n", compareFlags.outputJSON)
		fmt.Fprintf(out, "Status: %s (identical: %t)\n", report.Status, report.Identical)
		fmt.Fprintf(out, "Similarity: %.6f\n", report.Similarity)
		fmt.Fprintf(out, "Coverage (reference/candidate): %.6f / %.6f\n", report.RowAlignment.CoverageReference, report.RowAlignment.CoverageCandidate)
		fmt.Fprintf(out, "Overall score with coverage: %.6f\n", report.OverallScore)
	} else {
		fmt.Fprintln(out, string(payload))
	}

	logger.Debug("comparison done",
		zap.String("status", report.Status),
		zap.Int("matched_rows", report.RowAlignment.MatchedRows),
	)
	if compareFlags.strict && !report.Identical {
		return fmt.Errorf("tables differ (status %s, similarity %.6f)", report.Status, report.Similarity)
	}
	return nil
}
