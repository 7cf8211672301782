// Command censo prepares Census 2022 sector tables: canonical columns,
// decoded classifications, RM/AU enrichment, age pyramids and household
// category breakdowns.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/alias"
	"github.com/hilaliskandar/sensocenso/internal/config"
	"github.com/hilaliskandar/sensocenso/internal/logging"
	"github.com/hilaliskandar/sensocenso/internal/region"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger   *zap.Logger
	settings *config.Settings

	// Built once per run from the loaded settings.
	overrideCache *alias.OverrideCache
	regionCache   *region.Cache
)

var rootCmd = &cobra.Command{
	Use:   "censo",
	Short: "Census 2022 sector pipeline",
	Long: `censo reads IBGE Census 2022 sector data (Parquet or CSV), resolves
historical column names, decodes sector classifications, joins metropolitan
region and urban agglomeration membership, and writes age pyramids,
demographic indicators and household breakdowns as CSV and SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return err
		}
		settings, err = config.Load(configPath)
		if err != nil {
			logger.Warn("settings not loaded, using defaults", zap.String("path", configPath), zap.Error(err))
		}
		overrideCache, regionCache = newCaches(settings, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(colmapCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(configCmd)
}

func newCaches(s *config.Settings, log *zap.Logger) (*alias.OverrideCache, *region.Cache) {
	var overrides *alias.OverrideCache
	if s.Paths.ColumnMap != "" {
		overrides = alias.NewOverrideCache(alias.CSVLoader(s.Paths.ColumnMap), log)
	}
	return overrides, region.NewCache(log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
