package region

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

func TestNormalizeMunicipality(t *testing.T) {
	cases := map[string]string{
		"3550308":    "3550308",
		"3550308.0":  "3550308",
		" 35-50308 ": "3550308",
		"355030":     "0355030",
		"35503080":   "3550308",
		"":           "",
		"abc":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMunicipality(in), in)
	}
}

func sectors(codes ...string) *table.Table {
	t := table.New("CD_SETOR", "CD_MUN")
	for i, c := range codes {
		t.AppendRow(map[string]string{"CD_SETOR": string(rune('a' + i)), "CD_MUN": c})
	}
	return t
}

func TestEnrichWithScenario(t *testing.T) {
	l := Lookups{RM: Lookup{"3550308": "RM São Paulo"}, AU: Lookup{}}
	out := EnrichWith(sectors("3550308"), l, false)
	r := out.Rows[0]
	assert.Equal(t, "RM São Paulo", r[ColRM])
	assert.True(t, table.IsNull(r[ColAU]))
	assert.Equal(t, "RM", r[ColKind])
	assert.Equal(t, "RM São Paulo", r[ColName])
	assert.Equal(t, "RM São Paulo", r[ColRegion])
}

func TestEnrichWithAUAndPriority(t *testing.T) {
	l := Lookups{
		RM: Lookup{"3550308": "RM São Paulo"},
		AU: Lookup{"3550308": "AU Ignorada", "3518800": "AU Jundiaí"},
	}
	out := EnrichWith(sectors("3550308", "3518800.0", "1100205"), l, false)
	assert.Equal(t, "RM", out.Rows[0][ColKind])
	assert.Equal(t, "RM São Paulo", out.Rows[0][ColName])
	assert.Equal(t, "AU", out.Rows[1][ColKind])
	assert.Equal(t, "AU Jundiaí", out.Rows[1][ColName])
	assert.Equal(t, "", out.Rows[2][ColKind])
	assert.False(t, out.Has(ColIntermediary))
}

func TestEnrichWithNeverOverwrites(t *testing.T) {
	in := sectors("3550308", "3550308")
	in.AddColumn(ColRM)
	in.Rows[0][ColRM] = "Nome Anterior"
	out := EnrichWith(in, Lookups{RM: Lookup{"3550308": "RM São Paulo"}}, false)
	assert.Equal(t, "Nome Anterior", out.Rows[0][ColRM])
	assert.Equal(t, "Nome Anterior", out.Rows[0][ColName])
	assert.Equal(t, "RM São Paulo", out.Rows[1][ColRM])
	assert.Equal(t, "Nome Anterior", in.Rows[0][ColRM])
	assert.False(t, in.Has(ColKind))
}

func TestEnrichWithIntermediaryFallback(t *testing.T) {
	l := Lookups{RM: Lookup{"3550308": "RM São Paulo"}}
	out := EnrichWith(sectors("3550308", "3509502", "9999999"), l, true)
	assert.Equal(t, "", out.Rows[0][ColIntermediary])
	assert.Equal(t, "Bauru", out.Rows[1][ColIntermediary])

	st := Coverage(out)
	assert.Equal(t, Stats{Rows: 3, WithRM: 1, WithIntermediary: 1, Unmapped: 1}, st)
	assert.InDelta(t, 100.0/3, st.CoverageRM(), 1e-9)
	assert.InDelta(t, 200.0/3, st.CoverageTotal(), 1e-9)
}

func TestIntermediaryRegion(t *testing.T) {
	name, ok := IntermediaryRegion("3550308")
	assert.True(t, ok)
	assert.Equal(t, "São Paulo", name)
	_, ok = IntermediaryRegion("0")
	assert.False(t, ok)
	_, ok = IntermediaryRegion("")
	assert.False(t, ok)
}

func TestChainResolve(t *testing.T) {
	sheet, how, ok := RMSheets.Resolve([]string{"Leia-me", "Região Metropolitana - Composição"})
	require.True(t, ok)
	assert.Equal(t, "Região Metropolitana - Composição", sheet)
	assert.Equal(t, "fuzzy:metrop+composi", how)

	sheet, how, ok = RMSheets.Resolve([]string{"Composição RM", "RM"})
	require.True(t, ok)
	assert.Equal(t, "Composição RM", sheet)
	assert.Equal(t, "exact:Composição RM|Composicao_RM|RM", how)

	_, _, ok = AUSheets.Resolve([]string{"Plan1"})
	assert.False(t, ok)
}

func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}
	path := filepath.Join(t.TempDir(), "composicao.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func fixtureWorkbook(t *testing.T) string {
	return writeWorkbook(t, map[string][][]any{
		"RMs Metropol Composição": {
			{"COD_MUN", "NOME_MUN", "NOME_CATMETROPOL", "SIGLA_UF"},
			{3550308, "São Paulo", "RM São Paulo", "SP"},
			{"3550308", "São Paulo", "Duplicada", "SP"},
			{3304557, "Rio de Janeiro", "RM Rio de Janeiro", "RJ"},
		},
		"Aglomerações Urbanas": {
			{"Código do Município", "Nome da Aglomeração", "UF"},
			{"3518800", "AU Jundiaí", "SP"},
		},
	})
}

func TestBuildLookupsFuzzySheets(t *testing.T) {
	l, err := BuildLookups(fixtureWorkbook(t), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Lookup{"3550308": "RM São Paulo"}, l.RM)
	assert.Equal(t, Lookup{"3518800": "AU Jundiaí"}, l.AU)
}

func TestBuildLookupsMissingSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"RM": {{"COD_MUN", "NOME_CATMETROPOL"}, {3550308, "RM São Paulo"}},
	})
	l, err := BuildLookups(path, nil)
	require.NoError(t, err)
	assert.Len(t, l.RM, 1)
	assert.Empty(t, l.AU)
}

func TestEnrichMissingFileIsNoop(t *testing.T) {
	e := NewEnricher(nil, zap.NewNop())
	in := sectors("3550308")
	out, st := e.Enrich(in, filepath.Join(t.TempDir(), "nao-existe.xlsx"))
	assert.Equal(t, in.Headers, out.Headers)
	assert.Equal(t, in.Rows, out.Rows)
	assert.Equal(t, 1, st.Rows)

	out, _ = e.Enrich(in, "")
	assert.Equal(t, in.Headers, out.Headers)
}

func TestEnrichWorkbookWithoutRegionSheetsIsNoop(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Plan1": {{"COD_MUN", "NOME"}, {3550308, "São Paulo"}},
	})
	e := NewEnricher(nil, zap.NewNop())
	e.IntermediaryFallback = true
	in := sectors("3550308")
	out, st := e.Enrich(in, path)
	assert.Equal(t, in.Headers, out.Headers)
	assert.Equal(t, in.Rows, out.Rows)
	assert.Equal(t, Stats{Rows: 1}, st)
}

func TestEnrichFromWorkbook(t *testing.T) {
	e := NewEnricher(nil, zap.NewNop())
	e.IntermediaryFallback = true
	out, st := e.Enrich(sectors("3550308", "3518800", "3509502"), fixtureWorkbook(t))
	assert.Equal(t, "RM São Paulo", out.Rows[0][ColName])
	assert.Equal(t, "AU", out.Rows[1][ColKind])
	assert.Equal(t, "Bauru", out.Rows[2][ColIntermediary])
	assert.Equal(t, Stats{Rows: 3, WithRM: 1, WithAU: 1, WithIntermediary: 1}, st)
}

func TestCacheKeyedByModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rm.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	builds := 0
	c := NewCache(zap.NewNop())
	c.build = func(string, *zap.Logger) (Lookups, error) {
		builds++
		return Lookups{RM: Lookup{"3550308": "RM São Paulo"}}, nil
	}

	_, err := c.Get(path)
	require.NoError(t, err)
	_, err = c.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	l, err := c.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
	assert.Equal(t, "RM São Paulo", l.RM["3550308"])
	assert.Equal(t, 2, c.Len())

	c.Flush()
	assert.Zero(t, c.Len())
}
