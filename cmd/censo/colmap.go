package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hilaliskandar/sensocenso/internal/alias"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

var colmapCmd = &cobra.Command{
	Use:   "colmap",
	Short: "Generate the column map from a Parquet schema",
	Long: `Reads the schema of the sector Parquet file and writes a BOM-prefixed CSV
with, per column, its canonical equivalent, a human alias, the type used by
the pipeline and the code dictionary where one exists. The map is consulted
before the built-in synonyms on later runs.`,
	RunE: runColmapCmd,
}

var colmapFlags struct {
	input string
	out   string
}

func init() {
	colmapCmd.Flags().StringVarP(&colmapFlags.input, "input", "i", "", "Parquet file (default from settings)")
	colmapCmd.Flags().StringVarP(&colmapFlags.out, "out", "o", "", "Output CSV (default from settings)")

	auditCmd.Flags().StringVarP(&auditFlags.mapPath, "map", "m", "", "Column map CSV (default from settings)")
	auditCmd.Flags().StringVarP(&auditFlags.out, "out", "o", "", "Write the report to this file instead of stdout")
}

func runColmapCmd(cmd *cobra.Command, args []string) error {
	input, out := settings.Paths.Parquet, settings.Paths.ColumnMap
	if colmapFlags.input != "" {
		input = colmapFlags.input
	}
	if colmapFlags.out != "" {
		out = colmapFlags.out
	}
	cols, err := table.ParquetSchema(cmd.Context(), input)
	if err != nil {
		return err
	}
	// the static synonyms only: an existing map must not feed its own rebuild
	entries := alias.NewResolver(nil, logger).BuildColumnMap(cols)
	if err := alias.WriteColumnMap(out, entries); err != nil {
		return fmt.Errorf("write column map: %w", err)
	}
	rep := alias.Audit(entries)
	fmt.Fprintf(cmd.OutOrStdout(), "Columns: %d, mapped: %d\nColumn map: %s\n", rep.Total, rep.Mapped, out)
	return nil
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a column map: coverage, types and suggestions",
	RunE:  runAuditCmd,
}

var auditFlags struct {
	mapPath string
	out     string
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	path := settings.Paths.ColumnMap
	if auditFlags.mapPath != "" {
		path = auditFlags.mapPath
	}
	entries, err := alias.ReadColumnMap(path)
	if err != nil {
		return fmt.Errorf("read column map %s: %w", path, err)
	}
	report := renderAudit(path, alias.Audit(entries))
	var w io.Writer = cmd.OutOrStdout()
	if auditFlags.out != "" {
		return os.WriteFile(auditFlags.out, []byte(report), 0o644)
	}
	_, err = io.WriteString(w, report)
	return err
}

func renderAudit(path string, rep alias.AuditReport) string {
	lines := []string{
		"# Column map audit",
		"",
		fmt.Sprintf("- Map: `%s`", path),
		fmt.Sprintf("- Columns: %s", fmtInt(rep.Total)),
		fmt.Sprintf("- Mapped: %s (%.1f%%)", fmtInt(rep.Mapped), safeDiv(float64(rep.Mapped)*100, float64(rep.Total))),
		fmt.Sprintf("- Unmapped: %s", fmtInt(len(rep.Unmapped))),
		"",
		"## Parquet types",
	}
	for _, t := range rep.SortedTypes() {
		name := t
		if name == "" {
			name = "<unknown>"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", name, fmtInt(rep.TypeCounts[t])))
	}
	lines = append(lines, "")
	if len(rep.Suggestions) > 0 {
		lines = append(lines, "## Suggestions", "", "| column | canonical | similarity |", "|---|---|---|")
		for _, s := range rep.Suggestions {
			lines = append(lines, fmt.Sprintf("| %s | %s | %.2f |", s.Column, s.Canonical, s.Similarity))
		}
		lines = append(lines, "")
	}
	if len(rep.Unmapped) > 0 {
		lines = append(lines, "## Unmapped columns (first 50)")
		for i, e := range rep.Unmapped {
			if i == 50 {
				break
			}
			lines = append(lines, fmt.Sprintf("- `%s` (%s)", e.ParquetColumn, e.ParquetType))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
