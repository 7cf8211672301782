package category

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

func TestAggregateZeroFiltering(t *testing.T) {
	src := table.New("A", "B", "C", "D")
	src.AppendRow(map[string]string{"A": "30", "B": "0", "C": "-3", "D": "x"})
	src.AppendRow(map[string]string{"A": "20", "B": "", "C": "", "D": ""})

	facts := Aggregate(src, []string{"A", "B", "C", "D", "E"})
	require.Len(t, facts, 1)
	assert.Equal(t, "A", facts[0].Category)
	assert.Equal(t, 50.0, facts[0].Value)

	pct := Percent(facts)
	require.Len(t, pct, 1)
	assert.Equal(t, 100.0, pct[0].Value)
	assert.Equal(t, 50.0, facts[0].Value)
}

func TestAggregateKeepsColumnOrder(t *testing.T) {
	src := table.New("Rede geral", "Fossa", "Vala")
	src.AppendRow(map[string]string{"Rede geral": "70", "Fossa": "20,5", "Vala": "9.5"})
	facts := Shares(Aggregate(src, []string{"Vala", "Rede geral", "Fossa"}))
	require.Len(t, facts, 3)
	assert.Equal(t, []string{"Vala", "Rede geral", "Fossa"}, []string{facts[0].Category, facts[1].Category, facts[2].Category})
	assert.InDelta(t, 70.0, facts[1].Percent, 1e-9)
	assert.Equal(t, 70.0, facts[1].Value)
}

func TestPercentEmpty(t *testing.T) {
	assert.Empty(t, Percent(nil))
}

func TestParseGroups(t *testing.T) {
	data := []byte(`
groups:
  - title: Esgotamento sanitário
    chart: pie
    columns: [V00309, V00310]
  - title: Vazio
    columns: []
  - columns: [V00397]
`)
	groups, err := ParseGroups(data)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, Group{Title: "Esgotamento sanitário", Chart: "pie", Columns: []string{"V00309", "V00310"}}, groups[0])
	assert.Equal(t, "Indicador", groups[1].Title)
	assert.Equal(t, "bar", groups[1].Chart)

	_, err = ParseGroups([]byte("groups: []\n"))
	assert.True(t, errors.Is(err, ErrNoGroups))
}

func TestLoadGroupsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categorias.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups:\n  - title: Lixo\n    columns: [A]\n"), 0o644))
	groups, err := LoadGroups(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, groups[0].Columns)

	src := table.New("A", "B")
	assert.Equal(t, []string{"A"}, groups[0].Present(src))
}

func TestStripBoilerplate(t *testing.T) {
	cases := map[string]string{
		"Domicílios Particulares Permanentes Ocupados, Destinação do esgoto inexistente, pois não tinham banheiro nem sanitário.": "sem banheiro nem sanitário",
		"9+ banheiros de uso exclusivo com chuveiro e vaso sanitário existentes no domicílio":                                     "9+",
		"Destinação do lixo do domicílio é Coletado diretamente":                                                                  "Coletado diretamente",
		"Com 3 ou mais moradores_2":                                                                                               "3+ moradores",
		"":                                                                                                                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripBoilerplate(in), in)
	}
}

func TestExtractRoots(t *testing.T) {
	roots := ExtractRoots("Quantidade de moradores - Domicílios Particulares")
	assert.Equal(t, []string{"moradores - Domicílios Particulares", "Domicílios Particulares", "moradores"}, roots)
	assert.Nil(t, ExtractRoots("  "))
}

func TestDominantPrefix(t *testing.T) {
	assert.Equal(t, "DPPO", DominantPrefix([]string{"DPPO, a", "DPPO, b", "Outro, c"}))
	assert.Equal(t, "", DominantPrefix([]string{"A, x", "B, y"}))
	assert.Equal(t, "", DominantPrefix(nil))
}

func TestSimplifyByRoots(t *testing.T) {
	assert.Equal(t, "Rede geral", SimplifyByRoots("Esgotamento: Rede geral", []string{"esgotamento"}))
	assert.Equal(t, "Fossa", SimplifyByRoots("Esgotamento, Fossa", []string{"Esgotamento"}))
	assert.Equal(t, "sem raiz", SimplifyByRoots(" sem raiz ", nil))
}

func TestWrapLabel(t *testing.T) {
	assert.Equal(t, "Rede geral de<br>esgoto ou<br>pluvial", WrapLabel("Rede geral de esgoto ou pluvial", 16, "<br>"))
	assert.Equal(t, "Extraordinariamente<br>longo", WrapLabel("Extraordinariamente longo", 10, "<br>"))
	assert.Equal(t, "", WrapLabel("   ", 16, "<br>"))
}

func TestSimplifyRemovesTitlePrefix(t *testing.T) {
	facts := []Fact{{
		Category: "Domicílios Particulares Permanentes Ocupados, Destinação do esgoto do banheiro ou sanitário ou buraco para dejeções é Rede geral de esgoto ou pluvial",
		Value:    100,
	}}
	out := Simplify(facts, "Destinação do esgoto do banheiro ou sanitário", 0)
	require.Len(t, out, 1)
	assert.Equal(t, "Rede geral de esgoto ou pluvial", out[0].Simplified)
	assert.False(t, strings.HasPrefix(strings.ToLower(out[0].Simplified), "domicílios particulares"))
	assert.NotEmpty(t, out[0].Wrapped)
	assert.Equal(t, "", facts[0].Simplified)
}

func TestSimplifyDominantPrefix(t *testing.T) {
	facts := []Fact{
		{Category: "Domicílios Particulares Permanentes Ocupados, Destinação do lixo do domicílio é Coletado diretamente", Value: 60},
		{Category: "Domicílios Particulares Permanentes Ocupados, Destinação do lixo do domicílio é Queimado no domicílio", Value: 40},
	}
	out := Simplify(facts, "Destinação do lixo do domicílio", 16)
	assert.True(t, strings.HasPrefix(out[0].Simplified, "Coletado"))
	assert.Equal(t, "Queimado", out[1].Simplified)
	assert.Equal(t, "Coletado<br>diretamente", out[0].Wrapped)
}

func TestNewLabelerOverride(t *testing.T) {
	l, err := NewLabeler(0, map[string]string{PatternWastePrefix: `^Lixo:\s*`})
	require.NoError(t, err)
	assert.Equal(t, DefaultWrapWidth, l.Width)
	assert.Equal(t, "coletado", l.StripBoilerplate("lixo: coletado"))

	_, err = NewLabeler(10, map[string]string{PatternBathrooms: `(`})
	assert.Error(t, err)
}
