package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/alias"
	"github.com/hilaliskandar/sensocenso/internal/decode"
	"github.com/hilaliskandar/sensocenso/internal/region"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

type sourceOptions struct {
	Input                string
	UF                   string
	Limit                int
	RMXLSX               string
	IntermediaryFallback bool

	// Shared for the whole command run; nil builds a private one.
	Overrides *alias.OverrideCache
	Regions   *region.Cache
}

func sourceFromSettings() sourceOptions {
	return sourceOptions{
		Input:                settings.Paths.Parquet,
		UF:                   settings.Source.UFCode,
		Limit:                settings.Source.Limit,
		RMXLSX:               settings.Paths.RMXLSX,
		IntermediaryFallback: settings.Region.IntermediaryFallback,
		Overrides:            overrideCache,
		Regions:              regionCache,
	}
}

// sectorTable is the wide sector table after every normalization step, with
// what each step reported.
type sectorTable struct {
	Table          *table.Table
	SourceColumns  int
	Decode         decode.Report
	DroppedNumeric int
	Region         region.Stats
}

// loadSectors reads the input and runs alias resolution, code
// normalization, decoding, numeric coercion and region enrichment.
func loadSectors(ctx context.Context, opts sourceOptions, log *zap.Logger) (*sectorTable, error) {
	raw, err := table.Load(ctx, opts.Input, table.ScanFilter{UF: opts.UF, Limit: opts.Limit})
	if err != nil {
		return nil, fmt.Errorf("load sectors: %w", err)
	}
	log.Info("sectors loaded",
		zap.String("path", opts.Input),
		zap.Int("rows", raw.Len()),
		zap.Int("columns", len(raw.Headers)),
	)

	t := alias.NewResolver(opts.Overrides, log).Resolve(raw)
	t = decode.NormalizeCodes(t)

	out := &sectorTable{SourceColumns: len(raw.Headers)}
	t, out.Decode = decode.EnsureDecodes(t)
	if out.Decode.SituacaoMismatches+out.Decode.TipoMismatches > 0 {
		log.Warn("code and text classifications disagree",
			zap.Int("situacao", out.Decode.SituacaoMismatches),
			zap.Int("tipo", out.Decode.TipoMismatches),
		)
	}
	t, out.DroppedNumeric = decode.CoerceVariables(t)

	enricher := region.NewEnricher(opts.Regions, log)
	enricher.IntermediaryFallback = opts.IntermediaryFallback
	t, out.Region = enricher.Enrich(t, opts.RMXLSX)

	out.Table = t
	return out, nil
}
