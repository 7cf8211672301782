package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hilaliskandar/sensocenso/internal/alias"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

const defaultSampleSeed = int64(20220801)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a deterministic random sample of the sector table",
	Long: `Shuffles the sector rows with a fixed seed and keeps the first --rows,
writing them as a BOM-prefixed CSV. With --legacy the canonical columns are
renamed to their historical names, which is useful for exercising the alias
resolver.`,
	RunE: runSampleCmd,
}

var sampleFlags struct {
	input  string
	output string
	uf     string
	rows   int
	seed   int64
	legacy bool
}

func init() {
	f := sampleCmd.Flags()
	f.StringVarP(&sampleFlags.input, "input", "i", "", "Sector table, Parquet or CSV (default from settings)")
	f.StringVarP(&sampleFlags.output, "output", "o", "out/amostra_setores.csv", "Output CSV")
	f.StringVar(&sampleFlags.uf, "uf", "", "UF code filter (default from settings)")
	f.IntVar(&sampleFlags.rows, "rows", 500, "Rows to keep after shuffling (0 = all)")
	f.Int64Var(&sampleFlags.seed, "seed", defaultSampleSeed, "Shuffle seed")
	f.BoolVar(&sampleFlags.legacy, "legacy", false, "Rename canonical columns to historical names")
}

func runSampleCmd(cmd *cobra.Command, args []string) error {
	input, uf := settings.Paths.Parquet, settings.Source.UFCode
	if sampleFlags.input != "" {
		input = sampleFlags.input
	}
	if cmd.Flags().Changed("uf") {
		uf = sampleFlags.uf
	}
	t, err := table.Load(cmd.Context(), input, table.ScanFilter{UF: uf})
	if err != nil {
		return err
	}
	s := table.Sample(t, sampleFlags.rows, sampleFlags.seed)
	if sampleFlags.legacy {
		s = alias.Legacy(alias.NewResolver(overrideCache, logger).Resolve(s))
	}
	if err := table.WriteCSV(sampleFlags.output, s, true); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Input:  %s\n", input)
	fmt.Fprintf(out, "Output: %s\n", sampleFlags.output)
	fmt.Fprintf(out, "Seed:   %d\n", sampleFlags.seed)
	fmt.Fprintf(out, "Rows:   %s\n", fmtInt(s.Len()))
	fmt.Fprintf(out, "Cols:   %s\n", fmtInt(len(s.Headers)))
	return nil
}
