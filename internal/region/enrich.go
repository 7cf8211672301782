package region

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

const (
	ColRM           = "RM_NOME"
	ColAU           = "AU_NOME"
	ColName         = "NOME_RM_AU"
	ColKind         = "TIPO_RM_AU"
	ColRegion       = "REGIAO_RM_AU"
	ColIntermediary = "NM_RGINT"
	ColMunicipality = "CD_MUN"
)

// Enricher joins RM/AU membership onto sector tables.
type Enricher struct {
	Cache *Cache
	Log   *zap.Logger
	// IntermediaryFallback fills NM_RGINT for rows outside any RM or AU.
	IntermediaryFallback bool
}

func NewEnricher(c *Cache, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = NewCache(log)
	}
	return &Enricher{Cache: c, Log: log}
}

// Enrich returns a copy of t with region columns joined from the workbook at
// path. A missing path, an unreadable workbook, a workbook with no usable RM
// or AU sheet, or a table without CD_MUN leave the copy unchanged.
func (e *Enricher) Enrich(t *table.Table, path string) (*table.Table, Stats) {
	if strings.TrimSpace(path) == "" {
		return t.Clone(), Stats{Rows: t.Len()}
	}
	if !t.Has(ColMunicipality) {
		e.Log.Warn("region enrichment skipped: no municipality column")
		return t.Clone(), Stats{Rows: t.Len()}
	}
	l, err := e.Cache.Get(path)
	if err != nil {
		e.Log.Warn("region enrichment skipped", zap.String("path", path), zap.Error(err))
		return t.Clone(), Stats{Rows: t.Len()}
	}
	if len(l.RM) == 0 && len(l.AU) == 0 {
		e.Log.Warn("region enrichment skipped: no RM or AU sheet resolved", zap.String("path", path))
		return t.Clone(), Stats{Rows: t.Len()}
	}
	out := EnrichWith(t, l, e.IntermediaryFallback)
	st := Coverage(out)
	e.Log.Info("region enrichment applied",
		zap.Int("rows", st.Rows),
		zap.Int("rm", st.WithRM),
		zap.Int("au", st.WithAU),
		zap.Int("intermediary", st.WithIntermediary),
		zap.Int("unmapped", st.Unmapped),
	)
	return out, st
}

// EnrichWith is the join behind Enrich. Existing non-null cells in any
// region column are never overwritten.
func EnrichWith(t *table.Table, l Lookups, intermediaryFallback bool) *table.Table {
	out := t.Clone()
	if !out.Has(ColMunicipality) {
		return out
	}
	for _, c := range []string{ColRM, ColAU, ColName, ColKind, ColRegion} {
		out.AddColumn(c)
	}
	if intermediaryFallback {
		out.AddColumn(ColIntermediary)
	}
	for _, r := range out.Rows {
		code := NormalizeMunicipality(r[ColMunicipality])
		fill(r, ColRM, l.RM[code])
		fill(r, ColAU, l.AU[code])

		switch {
		case !table.IsNull(r[ColRM]):
			fill(r, ColName, r[ColRM])
			fill(r, ColKind, "RM")
		case !table.IsNull(r[ColAU]):
			fill(r, ColName, r[ColAU])
			fill(r, ColKind, "AU")
		case intermediaryFallback:
			if name, ok := IntermediaryRegion(code); ok {
				fill(r, ColIntermediary, name)
			}
		}
		fill(r, ColRegion, r[ColName])
	}
	return out
}

func fill(r map[string]string, col, v string) {
	if table.IsNull(r[col]) && !table.IsNull(v) {
		r[col] = v
	}
}

// Stats counts how many rows each region source covered.
type Stats struct {
	Rows             int
	WithRM           int
	WithAU           int
	WithIntermediary int
	Unmapped         int
}

// CoverageRM is the share of rows inside an RM or AU, in percent.
func (s Stats) CoverageRM() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.WithRM+s.WithAU) / float64(s.Rows) * 100
}

// CoverageTotal also counts rows placed by the intermediary fallback.
func (s Stats) CoverageTotal() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.Rows-s.Unmapped) / float64(s.Rows) * 100
}

// Coverage classifies each row by its first region source: RM, then AU,
// then intermediary region.
func Coverage(t *table.Table) Stats {
	st := Stats{Rows: t.Len()}
	for _, r := range t.Rows {
		switch {
		case !table.IsNull(r[ColRM]):
			st.WithRM++
		case !table.IsNull(r[ColAU]):
			st.WithAU++
		case !table.IsNull(r[ColIntermediary]):
			st.WithIntermediary++
		default:
			st.Unmapped++
		}
	}
	return st
}
