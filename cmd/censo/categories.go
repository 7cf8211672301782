package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hilaliskandar/sensocenso/internal/category"
	"github.com/hilaliskandar/sensocenso/internal/config"
	"github.com/hilaliskandar/sensocenso/internal/store"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Sum household indicator groups into category breakdowns",
	Long: `Reads the indicator groups from the categories YAML file and, for the
selected sectors, sums each group's columns into a category/value table.
Categories with no positive total are left out. Writes categorias.csv and a
categorias table in categorias.sqlite.`,
	RunE: runCategoriesCmd,
}

var categoriesFlags struct {
	input     string
	groups    string
	outDir    string
	situacoes []string
	tipos     []int
	where     map[string]string
	width     int
}

func init() {
	f := categoriesCmd.Flags()
	f.StringVarP(&categoriesFlags.input, "input", "i", "", "Sector table, Parquet or CSV (default from settings)")
	f.StringVar(&categoriesFlags.groups, "groups", "", "Categories YAML (default from settings)")
	f.StringVarP(&categoriesFlags.outDir, "out-dir", "o", "", "Output directory (default from settings)")
	f.StringSliceVar(&categoriesFlags.situacoes, "situacao", nil, "Keep only these SITUACAO values (Urbana, Rural)")
	f.IntSliceVar(&categoriesFlags.tipos, "tipo", nil, "Keep only these CD_TIPO codes")
	f.StringToStringVar(&categoriesFlags.where, "where", nil, "Keep rows where COLUMN=value, e.g. NOME_RM_AU=\"RM São Paulo\"")
	f.IntVar(&categoriesFlags.width, "width", 0, "Label wrap width (default from settings)")
}

type categoriesOptions struct {
	sourceOptions
	Groups    string
	OutDir    string
	Situacoes []string
	Tipos     []int
	Where     map[string]string
	Labels    config.LabelsConfig
}

func runCategoriesCmd(cmd *cobra.Command, args []string) error {
	opts := categoriesOptions{
		sourceOptions: sourceFromSettings(),
		Groups:        settings.Paths.Categories,
		OutDir:        settings.Paths.OutputDir,
		Situacoes:     categoriesFlags.situacoes,
		Tipos:         categoriesFlags.tipos,
		Where:         categoriesFlags.where,
		Labels:        settings.Labels,
	}
	if categoriesFlags.input != "" {
		opts.Input = categoriesFlags.input
	}
	if categoriesFlags.groups != "" {
		opts.Groups = categoriesFlags.groups
	}
	if categoriesFlags.outDir != "" {
		opts.OutDir = categoriesFlags.outDir
	}
	if categoriesFlags.width > 0 {
		opts.Labels.WrapWidth = categoriesFlags.width
	}

	breakdowns, err := runCategories(cmd.Context(), opts, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, b := range breakdowns {
		fmt.Fprintf(out, "%s: %d categories\n", b.Group, len(b.Facts))
	}
	fmt.Fprintf(out, "CSV: %s\n", filepath.Join(opts.OutDir, "categorias.csv"))
	return nil
}

func runCategories(ctx context.Context, opts categoriesOptions, log *zap.Logger) ([]store.Breakdown, error) {
	groups, err := category.LoadGroups(opts.Groups)
	if err != nil {
		return nil, err
	}
	labeler, err := category.NewLabeler(opts.Labels.WrapWidth, opts.Labels.Patterns)
	if err != nil {
		return nil, err
	}
	sectors, err := loadSectors(ctx, opts.sourceOptions, log)
	if err != nil {
		return nil, err
	}
	scope := filterScope(sectors.Table, opts.Situacoes, opts.Tipos, opts.Where)
	log.Info("category scope", zap.Int("rows", scope.Len()))

	// Groups only read the scope table; results keep the file order.
	results := make([]*store.Breakdown, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, g := range groups {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			cols := g.Present(scope)
			if len(cols) == 0 {
				log.Debug("group has no columns in table", zap.String("group", g.Title))
				return nil
			}
			facts := labeler.Simplify(category.Shares(category.Aggregate(scope, cols)), g.Title)
			results[i] = &store.Breakdown{Group: g.Title, Facts: facts}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	var breakdowns []store.Breakdown
	for _, b := range results {
		if b != nil {
			breakdowns = append(breakdowns, *b)
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outputs: %w", err)
	}
	if err := table.WriteCSV(filepath.Join(opts.OutDir, "categorias.csv"), breakdownTable(breakdowns), true); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	dbPath := filepath.Join(opts.OutDir, "categorias.sqlite")
	_ = os.Remove(dbPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := store.WriteCategories(ctx, db, "categorias", breakdowns); err != nil {
		return nil, fmt.Errorf("write sqlite: %w", err)
	}
	return breakdowns, nil
}

// filterScope keeps the rows matching every given restriction. Empty
// restrictions match everything.
func filterScope(t *table.Table, situacoes []string, tipos []int, where map[string]string) *table.Table {
	keepSit := map[string]bool{}
	for _, s := range situacoes {
		if s = strings.TrimSpace(s); s != "" {
			keepSit[strings.ToLower(s)] = true
		}
	}
	keepTipo := map[int]bool{}
	for _, c := range tipos {
		keepTipo[c] = true
	}
	return t.Filter(func(r map[string]string) bool {
		if len(keepSit) > 0 && !keepSit[strings.ToLower(strings.TrimSpace(r["SITUACAO"]))] {
			return false
		}
		if len(keepTipo) > 0 {
			v, ok := table.ParseNumber(r["CD_TIPO"])
			if !ok || !keepTipo[int(v)] {
				return false
			}
		}
		for k, v := range where {
			if strings.TrimSpace(r[k]) != strings.TrimSpace(v) {
				return false
			}
		}
		return true
	})
}

func breakdownTable(breakdowns []store.Breakdown) *table.Table {
	t := table.New("grupo", "categoria", "rotulo", "rotulo_quebrado", "valor", "percentual")
	for _, b := range breakdowns {
		for _, f := range b.Facts {
			t.AppendRow(map[string]string{
				"grupo":           b.Group,
				"categoria":       f.Category,
				"rotulo":          f.Simplified,
				"rotulo_quebrado": f.Wrapped,
				"valor":           table.FormatNumber(f.Value),
				"percentual":      fmt.Sprintf("%.2f", f.Percent),
			})
		}
	}
	return t
}
