package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/pyramid"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

// declaredTolerance is the relative gap between the age/sex sum and V0001
// above which a sector is reported.
const declaredTolerance = 0.05

func buildProfile(s *sectorTable, long pyramid.Long) string {
	t := s.Table
	lines := []string{
		"# Censo 2022 sector preparation report",
		"",
		"## Dataset shape",
		fmt.Sprintf("- Sectors read: %s", fmtInt(t.Len())),
		fmt.Sprintf("- Source columns: %s", fmtInt(s.SourceColumns)),
		fmt.Sprintf("- Columns after normalization: %s", fmtInt(len(t.Headers))),
		fmt.Sprintf("- V000x cells dropped as non-numeric: %s", fmtInt(s.DroppedNumeric)),
		fmt.Sprintf("- Age/sex cells missing (read as 0): %s", fmtInt(long.Missing)),
		fmt.Sprintf("- Age/sex cells coerced: %s", fmtInt(long.Coerced)),
		"",
		"## Classification decode",
		fmt.Sprintf("- CD_SITUACAO / SITUACAO_DET_TXT mismatches: %s", fmtInt(s.Decode.SituacaoMismatches)),
		fmt.Sprintf("- CD_TIPO / TP_SETOR_TXT mismatches: %s", fmtInt(s.Decode.TipoMismatches)),
		"",
	}

	st := s.Region
	if st.WithRM+st.WithAU+st.WithIntermediary > 0 {
		lines = append(lines,
			"## Region coverage",
			fmt.Sprintf("- In an RM: %s", fmtInt(st.WithRM)),
			fmt.Sprintf("- In an AU: %s", fmtInt(st.WithAU)),
			fmt.Sprintf("- Intermediary region fallback: %s", fmtInt(st.WithIntermediary)),
			fmt.Sprintf("- Unmapped: %s", fmtInt(st.Unmapped)),
			fmt.Sprintf("- RM/AU coverage: %.1f%%", st.CoverageRM()),
			fmt.Sprintf("- Total coverage: %.1f%%", st.CoverageTotal()),
			"",
		)
	}

	lines = append(lines, "## Population consistency")
	declared, checked, off := declaredGap(t, long)
	lines = append(lines,
		fmt.Sprintf("- Age/sex total: %s", fmtInt(int(long.Total()))),
		fmt.Sprintf("- Declared V0001 total: %s", fmtInt(int(declared))),
		fmt.Sprintf("- Sectors compared: %s, off by more than %.0f%%: %s", fmtInt(checked), declaredTolerance*100, fmtInt(off)),
		"",
	)

	lines = append(lines, "## Missingness (top 20 columns by null %)")
	type miss struct {
		col string
		pct float64
	}
	var misses []miss
	for _, col := range t.Headers {
		nulls := 0
		for _, r := range t.Rows {
			if table.IsNull(r[col]) {
				nulls++
			}
		}
		misses = append(misses, miss{col, safeDiv(float64(nulls)*100, float64(t.Len()))})
	}
	sort.SliceStable(misses, func(i, j int) bool {
		if misses[i].pct != misses[j].pct {
			return misses[i].pct > misses[j].pct
		}
		return misses[i].col < misses[j].col
	})
	for i := 0; i < len(misses) && i < 20; i++ {
		lines = append(lines, fmt.Sprintf("- `%s`: %.1f%% null", misses[i].col, misses[i].pct))
	}
	lines = append(lines, "")

	lines = append(lines, "## Value counts (top 20)")
	for _, col := range []string{"SITUACAO", "SITUACAO_DET_TXT", "TP_SETOR_TXT", "TIPO_RM_AU", "NOME_RM_AU", "NM_RGINT"} {
		if !t.Has(col) {
			continue
		}
		counts := map[string]int{}
		for _, r := range t.Rows {
			k := "<NA>"
			if !table.IsNull(r[col]) {
				k = strings.TrimSpace(r[col])
			}
			counts[k]++
		}
		type kv struct {
			k string
			v int
		}
		var items []kv
		for k, v := range counts {
			items = append(items, kv{k, v})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].v == items[j].v {
				return items[i].k < items[j].k
			}
			return items[i].v > items[j].v
		})
		lines = append(lines, fmt.Sprintf("### `%s`", col))
		for i := 0; i < len(items) && i < 20; i++ {
			lines = append(lines, fmt.Sprintf("- %s: %s", items[i].k, fmtInt(items[i].v)))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// declaredGap compares each sector's age/sex sum with its declared V0001.
func declaredGap(t *table.Table, long pyramid.Long) (declared int64, checked, off int) {
	if !t.Has("V0001") || !t.Has("CD_SETOR") {
		return 0, 0, 0
	}
	sums := map[string]int64{}
	for _, f := range long.Facts {
		sums[f.Keys["CD_SETOR"]] += f.Value
	}
	for _, r := range t.Rows {
		v, ok := table.ParseNumber(r["V0001"])
		if !ok {
			continue
		}
		declared += int64(v)
		if v == 0 {
			continue
		}
		got := sums[r["CD_SETOR"]]
		checked++
		if math.Abs(float64(got)-v)/v > declaredTolerance {
			off++
		}
	}
	return declared, checked, off
}

func fmtInt(v int) string { return pyramid.FormatBR(float64(v), 0) }

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
