package compare

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

func longTable(values ...string) *table.Table {
	t := table.New("CD_MUN", "idade_grupo", "sexo", "valor")
	sexes := []string{"Masculino", "Feminino"}
	for i, v := range values {
		t.AppendRow(map[string]string{
			"CD_MUN":      "3550308",
			"idade_grupo": "0 a 4 anos",
			"sexo":        sexes[i%2],
			"valor":       v,
		})
	}
	return t
}

var keys = []string{"CD_MUN", "idade_grupo", "sexo"}

func TestTablesIdentical(t *testing.T) {
	rep, err := Tables(longTable("120", "110"), longTable("120.0", "110"), keys, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, rep.Status)
	assert.True(t, rep.Identical)
	assert.Equal(t, 1.0, rep.Similarity)
	assert.Equal(t, 1.0, rep.OverallScore)
	require.Len(t, rep.Columns, 1)
	assert.Equal(t, "valor", rep.Columns[0].Column)
}

func TestTablesNumericDrift(t *testing.T) {
	rep, err := Tables(longTable("100", "110"), longTable("90", "110"), keys, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, rep.Status)
	assert.False(t, rep.Identical)
	require.Len(t, rep.Columns, 1)
	c := rep.Columns[0]
	assert.Equal(t, 1, c.Mismatches)
	assert.Equal(t, 10.0, c.MaxAbsDiff)
	// (0.9 + 1) / 2
	assert.InDelta(t, 0.95, c.Similarity, 1e-9)

	tolerant, err := Tables(longTable("100", "110"), longTable("90", "110"), keys, 10)
	require.NoError(t, err)
	assert.True(t, tolerant.Identical)
}

func TestTablesPartialAlignment(t *testing.T) {
	ref := longTable("120", "110")
	cand := longTable("120")
	cand.AppendRow(map[string]string{"CD_MUN": "3509502", "idade_grupo": "0 a 4 anos", "sexo": "Feminino", "valor": "1"})
	cand.AddColumn("extra")

	rep, err := Tables(ref, cand, keys, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, rep.Status)
	assert.False(t, rep.Identical)
	assert.Equal(t, 1, rep.RowAlignment.MatchedRows)
	assert.Equal(t, 1, rep.RowAlignment.UnmatchedCandidateRows)
	assert.Equal(t, 0.5, rep.RowAlignment.CoverageReference)
	assert.Equal(t, 0.5, rep.OverallScore)
	assert.Equal(t, []string{"extra"}, rep.CandidateOnly)
}

func TestTablesMissingKey(t *testing.T) {
	_, err := Tables(longTable("1"), table.New("CD_MUN"), keys, 0)
	assert.ErrorIs(t, err, table.ErrMissingColumn)
	_, err = Tables(longTable("1"), longTable("1"), nil, 0)
	assert.Error(t, err)
}

func TestValueSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, valueSimilarity(" ", "", 0))
	assert.Equal(t, 0.0, valueSimilarity("a", "", 0))
	assert.Equal(t, 1.0, valueSimilarity("3,5", "3.5", 0))
	assert.InDelta(t, 0.8, valueSimilarity("Rural", "Rura", 0), 1e-9)
	assert.InDelta(t, 5.0/6.0, valueSimilarity("Urbana", "Urbano", 0), 1e-9)
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")
	require.NoError(t, table.WriteCSV(a, longTable("5", "6"), true))
	require.NoError(t, table.WriteCSV(b, longTable("5", "6"), false))
	rep, err := Files(a, b, keys, 0)
	require.NoError(t, err)
	assert.True(t, rep.Identical)
	assert.Equal(t, a, rep.Config.ReferenceCSV)
}
