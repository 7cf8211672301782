package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/indicators"
	"github.com/hilaliskandar/sensocenso/internal/pyramid"
	"github.com/hilaliskandar/sensocenso/internal/store"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build age pyramids and indicators from the sector table",
	Long: `Loads the sector table, normalizes it, reshapes the age/sex columns to
long form and aggregates by the requested keys. Writes:

  piramide_long.csv   aggregated population by keys, bracket and sex
  piramide_abnt.csv   bracket by sex table for the whole selection
  indicadores.csv     dependency and ageing ratios per key combination
  censo.sqlite        setores, populacao and indicadores tables
  perfil.md           preparation report`,
	RunE: runPrepareCmd,
}

var prepareFlags struct {
	input   string
	rmXLSX  string
	outDir  string
	uf      string
	limit   int
	groupBy []string
}

func init() {
	f := prepareCmd.Flags()
	f.StringVarP(&prepareFlags.input, "input", "i", "", "Sector table, Parquet or CSV (default from settings)")
	f.StringVar(&prepareFlags.rmXLSX, "rm-xlsx", "", "RM/AU composition workbook (default from settings)")
	f.StringVarP(&prepareFlags.outDir, "out-dir", "o", "", "Output directory (default from settings)")
	f.StringVar(&prepareFlags.uf, "uf", "", "UF code filter (default from settings)")
	f.IntVar(&prepareFlags.limit, "limit", 0, "Optional row limit for testing (0 = all rows)")
	f.StringSliceVarP(&prepareFlags.groupBy, "group-by", "g", []string{"CD_MUN", "NM_MUN"}, "Aggregation keys")
}

type prepareOptions struct {
	sourceOptions
	GroupBy []string
	OutDir  string
}

type prepareOutputs struct {
	LongCSV      string
	AbntCSV      string
	IndicatorCSV string
	SQLite       string
	Profile      string
}

type prepareResult struct {
	Sectors    *sectorTable
	Long       pyramid.Long
	Aggregated pyramid.Long
	Outputs    prepareOutputs
}

func runPrepareCmd(cmd *cobra.Command, args []string) error {
	opts := prepareOptions{sourceOptions: sourceFromSettings(), OutDir: settings.Paths.OutputDir}
	if prepareFlags.input != "" {
		opts.Input = prepareFlags.input
	}
	if prepareFlags.rmXLSX != "" {
		opts.RMXLSX = prepareFlags.rmXLSX
	}
	if prepareFlags.outDir != "" {
		opts.OutDir = prepareFlags.outDir
	}
	if cmd.Flags().Changed("uf") {
		opts.UF = prepareFlags.uf
	}
	if cmd.Flags().Changed("limit") {
		opts.Limit = prepareFlags.limit
	}
	opts.GroupBy = prepareFlags.groupBy

	res, err := runPrepare(cmd.Context(), opts, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sectors read: %s\n", fmtInt(res.Sectors.Table.Len()))
	fmt.Fprintf(out, "Population (long): %s\n", fmtInt(int(res.Long.Total())))
	fmt.Fprintf(out, "Groups: %s\n", fmtInt(res.Aggregated.Groups()))
	fmt.Fprintf(out, "CSV: %s\n", res.Outputs.LongCSV)
	fmt.Fprintf(out, "ABNT table: %s\n", res.Outputs.AbntCSV)
	fmt.Fprintf(out, "Indicators: %s\n", res.Outputs.IndicatorCSV)
	fmt.Fprintf(out, "SQLite: %s\n", res.Outputs.SQLite)
	fmt.Fprintf(out, "Profile: %s\n", res.Outputs.Profile)
	return nil
}

func runPrepare(ctx context.Context, opts prepareOptions, log *zap.Logger) (*prepareResult, error) {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outputs: %w", err)
	}
	sectors, err := loadSectors(ctx, opts.sourceOptions, log)
	if err != nil {
		return nil, err
	}

	src, err := pyramid.Detect(sectors.Table)
	if err != nil {
		return nil, err
	}
	long, err := src.Long()
	if err != nil {
		return nil, err
	}
	if long.Coerced > 0 {
		log.Warn("age/sex cells coerced to integers", zap.Int("cells", long.Coerced))
	}

	groupBy := presentKeys(opts.GroupBy, long.KeyColumns, log)
	agg, err := pyramid.Aggregate(pyramid.FromLong(long), groupBy...)
	if err != nil {
		return nil, err
	}

	res := &prepareResult{Sectors: sectors, Long: long, Aggregated: agg}
	res.Outputs = prepareOutputs{
		LongCSV:      filepath.Join(opts.OutDir, "piramide_long.csv"),
		AbntCSV:      filepath.Join(opts.OutDir, "piramide_abnt.csv"),
		IndicatorCSV: filepath.Join(opts.OutDir, "indicadores.csv"),
		SQLite:       filepath.Join(opts.OutDir, "censo.sqlite"),
		Profile:      filepath.Join(opts.OutDir, "perfil.md"),
	}

	if err := table.WriteCSV(res.Outputs.LongCSV, agg.Table(), true); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	abnt := pyramid.DemographicTable(pyramid.Pad(agg, pyramid.AgeGroups), pyramid.AgeGroups)
	if err := table.WriteCSV(res.Outputs.AbntCSV, pyramid.DemographicTableView(abnt), true); err != nil {
		return nil, fmt.Errorf("write abnt table: %w", err)
	}
	ind := indicators.ByGroup(agg, groupBy...)
	indTable := indicators.Table(ind, groupBy...)
	if err := table.WriteCSV(res.Outputs.IndicatorCSV, indTable, true); err != nil {
		return nil, fmt.Errorf("write indicators: %w", err)
	}

	if err := writePrepareSQLite(ctx, res.Outputs.SQLite, sectors.Table, agg, indTable); err != nil {
		return nil, fmt.Errorf("write sqlite: %w", err)
	}

	profile := buildProfile(sectors, long)
	if err := os.WriteFile(res.Outputs.Profile, []byte(profile), 0o644); err != nil {
		return nil, fmt.Errorf("write profile: %w", err)
	}
	return res, nil
}

// presentKeys drops group keys the long table does not carry.
func presentKeys(want, have []string, log *zap.Logger) []string {
	set := map[string]bool{}
	for _, k := range have {
		set[k] = true
	}
	var out []string
	for _, k := range want {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !set[k] {
			log.Warn("group key not in table, ignored", zap.String("key", k))
			continue
		}
		out = append(out, k)
	}
	return out
}

func writePrepareSQLite(ctx context.Context, path string, sectors *table.Table, agg pyramid.Long, ind *table.Table) error {
	_ = os.Remove(path)
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	types := map[string]string{}
	for _, h := range sectors.Headers {
		switch {
		case h == "V0005" || h == "V0006":
			types[h] = "REAL"
		case len(h) == 5 && strings.HasPrefix(h, "V000"):
			types[h] = "INTEGER"
		}
	}
	if err := store.WriteStringTable(ctx, db, "setores", sectors, types); err != nil {
		return err
	}
	if err := store.WriteLong(ctx, db, "populacao", agg); err != nil {
		return err
	}
	indTypes := map[string]string{
		"pop_0_14": "INTEGER", "pop_15_59": "INTEGER", "pop_60p": "INTEGER", "pop_70p": "INTEGER", "pop_total": "INTEGER",
		"RDT": "REAL", "RDJ": "REAL", "RDI": "REAL", "IE_60p": "REAL", "Prop_70p": "REAL",
	}
	return store.WriteStringTable(ctx, db, "indicadores", ind, indTypes)
}
