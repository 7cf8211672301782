package pyramid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

func wideFixture() *table.Table {
	headers := []string{"CD_SETOR", "CD_MUN", "CD_SITUACAO"}
	for _, g := range AgeGroups {
		headers = append(headers, "Sexo masculino, "+g)
	}
	for _, g := range AgeGroups {
		headers = append(headers, "Sexo feminino, "+g)
	}
	t := table.New(headers...)
	t.AppendRow(map[string]string{
		"CD_SETOR":                   "355030801000001",
		"CD_MUN":                     "3550308",
		"CD_SITUACAO":                "1",
		"Sexo masculino, 0 a 4 anos": "120",
		"Sexo feminino, 0 a 4 anos":  "110",
	})
	return t
}

func TestWideToLongScenario(t *testing.T) {
	w := wideFixture()
	w.AddColumn("V0001")
	w.Rows[0]["V0001"] = "230"
	for _, h := range w.Headers {
		if _, ok := w.Rows[0][h]; !ok {
			w.Rows[0][h] = "0"
		}
	}
	l, err := WideToLong(w)
	require.NoError(t, err)
	require.Len(t, l.Facts, 2)

	keys := l.Facts[0].Keys
	assert.Equal(t, "Urbana", keys["SITUACAO"])
	assert.Equal(t, "230", keys["V0001"])
	want := []Fact{
		{Keys: keys, AgeGroup: "0 a 4 anos", Sex: Masculino, Value: 120},
		{Keys: keys, AgeGroup: "0 a 4 anos", Sex: Feminino, Value: 110},
	}
	if diff := cmp.Diff(want, l.Facts); diff != "" {
		t.Fatalf("facts (-want +got):\n%s", diff)
	}
	assert.EqualValues(t, 230, l.Total())
	assert.Zero(t, l.Missing)
	assert.Zero(t, l.Coerced)

	agg, err := Aggregate(FromWide(w))
	require.NoError(t, err)
	assert.Empty(t, agg.KeyColumns)
	want = []Fact{
		{Keys: map[string]string{}, AgeGroup: "0 a 4 anos", Sex: Feminino, Value: 110},
		{Keys: map[string]string{}, AgeGroup: "0 a 4 anos", Sex: Masculino, Value: 120},
	}
	if diff := cmp.Diff(want, agg.Facts); diff != "" {
		t.Fatalf("aggregate (-want +got):\n%s", diff)
	}
}

func TestWideToLongDenseKeepsZeros(t *testing.T) {
	l, err := WideToLongDense(wideFixture())
	require.NoError(t, err)
	require.Len(t, l.Facts, 22)
	assert.Equal(t, Masculino, l.Facts[0].Sex)
	assert.EqualValues(t, 230, l.Total())
	assert.Equal(t, 20, l.Missing)

	sparse, err := WideToLong(wideFixture())
	require.NoError(t, err)
	assert.Len(t, sparse.Facts, 2)
	assert.Equal(t, 20, sparse.Missing)
}

func TestWideToLongPreservesTotal(t *testing.T) {
	w := wideFixture()
	w.AppendRow(map[string]string{
		"CD_SETOR":                        "355030801000002",
		"Sexo masculino, 70 anos ou mais": "7",
		"Sexo feminino, 30 a 39 anos":     "12,0",
		"Sexo feminino, 40 a 49 anos":     "abc",
		"Sexo feminino, 50 a 59 anos":     "-4",
	})
	l, err := WideToLong(w)
	require.NoError(t, err)
	assert.EqualValues(t, 120+110+7+12, l.Total())
	assert.Equal(t, 2, l.Coerced)
}

func TestWideToLongSuffixedHeaders(t *testing.T) {
	w := table.New("CD_SETOR", "Sexo masculino, 5 a 9 anos_1", "SEXO FEMININO , 5 a 9 anos")
	w.AppendRow(map[string]string{"CD_SETOR": "1", "Sexo masculino, 5 a 9 anos_1": "3", "SEXO FEMININO , 5 a 9 anos": "4"})
	l, err := WideToLong(w)
	require.NoError(t, err)
	require.Len(t, l.Facts, 2)
	assert.Equal(t, Fact{Keys: map[string]string{"CD_SETOR": "1"}, AgeGroup: "5 a 9 anos", Sex: Masculino, Value: 3}, l.Facts[0])
	assert.Equal(t, Feminino, l.Facts[1].Sex)
	assert.EqualValues(t, 4, l.Facts[1].Value)
}

func TestWideToLongShapeError(t *testing.T) {
	_, err := WideToLong(table.New("CD_SETOR", "V0001"))
	assert.True(t, errors.Is(err, ErrDatasetShape))
}

func TestPickAgeColumns(t *testing.T) {
	male, female := PickAgeColumns([]string{"Sexo feminino, 0 a 4 anos", "Sexo masculino, 0 a 4 anos", "Sexo masculino, 0 a 4 anos_2"})
	assert.Equal(t, []string{"Sexo masculino, 0 a 4 anos"}, male)
	assert.Equal(t, []string{"Sexo feminino, 0 a 4 anos"}, female)
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in, sex, age string
	}{
		{"Sexo masculino, 0 a 4 anos", Masculino, "0 a 4 anos"},
		{"Sexo feminino, 70 anos ou mais_3", Feminino, "70 anos ou mais"},
		{"10 a 14 anos", Total, "10 a 14 anos"},
	}
	for _, tc := range tests {
		sex, age := ParseKey(tc.in)
		assert.Equal(t, tc.sex, sex, tc.in)
		assert.Equal(t, tc.age, age, tc.in)
	}
}

func TestAggregateWideAndLongAgree(t *testing.T) {
	w := wideFixture()
	w.AppendRow(map[string]string{"CD_SETOR": "2", "CD_MUN": "3550308", "CD_SITUACAO": "8", "Sexo masculino, 0 a 4 anos": "5"})

	fromWide, err := Aggregate(FromWide(w), "SITUACAO")
	require.NoError(t, err)

	l, err := WideToLong(w)
	require.NoError(t, err)
	fromLong, err := Aggregate(FromLong(l), "SITUACAO")
	require.NoError(t, err)

	if diff := cmp.Diff(fromWide.Facts, fromLong.Facts); diff != "" {
		t.Fatalf("wide and long aggregates differ (-wide +long):\n%s", diff)
	}
	assert.Equal(t, l.Total(), fromWide.Total())
	require.Len(t, fromWide.Facts, 3)
	assert.Equal(t, 2, fromWide.Groups())

	first := fromWide.Facts[0]
	assert.Equal(t, "Rural", first.Keys["SITUACAO"])
	assert.Equal(t, "0 a 4 anos", first.AgeGroup)
	assert.Equal(t, Masculino, first.Sex)
	assert.EqualValues(t, 5, first.Value)
	assert.Equal(t, "Urbana", fromWide.Facts[1].Keys["SITUACAO"])
	assert.Equal(t, Feminino, fromWide.Facts[1].Sex)
}

func TestAggregateIgnoresAbsentGroupKeys(t *testing.T) {
	agg, err := Aggregate(FromWide(wideFixture()), "RM_NOME", "CD_MUN", "CD_MUN")
	require.NoError(t, err)
	assert.Equal(t, []string{"CD_MUN"}, agg.KeyColumns)
	for _, f := range agg.Facts {
		assert.Equal(t, map[string]string{"CD_MUN": "3550308"}, f.Keys)
	}
	assert.Equal(t, []string{"CD_MUN", ColAge, ColSex, ColValue}, agg.Table().Headers)
	assert.Equal(t, 1, agg.Groups())
}

func TestSortFactsPutsUnknownBracketsLast(t *testing.T) {
	facts := []Fact{
		{AgeGroup: "70 anos ou mais", Sex: Masculino},
		{AgeGroup: "idade ignorada", Sex: Masculino},
		{AgeGroup: "0 a 1 ano", Sex: Masculino},
		{AgeGroup: "5 a 9 anos", Sex: Masculino},
		{AgeGroup: "80 anos ou mais", Sex: Masculino},
		{AgeGroup: "0 a 4 anos", Sex: Masculino},
	}
	SortFacts(facts, nil)
	var got []string
	for _, f := range facts {
		got = append(got, f.AgeGroup)
	}
	assert.Equal(t, []string{
		"0 a 4 anos", "5 a 9 anos", "70 anos ou mais",
		"0 a 1 ano", "80 anos ou mais", "idade ignorada",
	}, got)
}

func TestAggregateAdditive(t *testing.T) {
	l, err := WideToLong(wideFixture())
	require.NoError(t, err)
	all, err := Aggregate(FromLong(l))
	require.NoError(t, err)
	byMun, err := Aggregate(FromLong(l), "CD_MUN")
	require.NoError(t, err)
	assert.Equal(t, all.Total(), byMun.Total())
}

func TestDetectLongTable(t *testing.T) {
	src := table.New("CD_MUN", ColAge, ColSex, ColValue)
	src.AppendRow(map[string]string{"CD_MUN": "1", ColAge: "0 a 4 anos", ColSex: Masculino, ColValue: "3"})
	s, err := Detect(src)
	require.NoError(t, err)
	assert.False(t, s.IsWide())
	l, err := s.Long()
	require.NoError(t, err)
	assert.Equal(t, []string{"CD_MUN"}, l.KeyColumns)

	back, err := LongFromTable(l.Table())
	require.NoError(t, err)
	assert.Equal(t, l.Facts, back.Facts)
}

func TestPadFillsGrid(t *testing.T) {
	l := Long{Facts: []Fact{
		{AgeGroup: "0-4", Sex: Masculino, Value: 2},
		{AgeGroup: "0 a 4 anos", Sex: Masculino, Value: 3},
		{AgeGroup: "70+", Sex: Feminino, Value: 9},
		{AgeGroup: "idade ignorada", Sex: Feminino, Value: 1},
	}}
	p := Pad(l, nil)
	require.Len(t, p.Facts, 22)
	assert.Equal(t, Masculino, p.Facts[0].Sex)
	assert.EqualValues(t, 5, p.Facts[0].Value)
	assert.Equal(t, Feminino, p.Facts[21].Sex)
	assert.Equal(t, "70 anos ou mais", p.Facts[21].AgeGroup)
	assert.EqualValues(t, 9, p.Facts[21].Value)
	assert.EqualValues(t, 14, p.Total())
}

func TestNormalizeAgeLabel(t *testing.T) {
	cases := map[string]string{
		"30-34":           "30 a 34 anos",
		"30 – 34":         "30 a 34 anos",
		"5 a 9":           "5 a 9 anos",
		"70+":             "70 anos ou mais",
		"80 ou mais":      "80 anos ou mais",
		"75":              "75 anos ou mais",
		"idade ignorada":  "idade ignorada",
		"70 anos ou mais": "70 anos ou mais",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeAgeLabel(in), in)
	}
}

func TestDemographicTable(t *testing.T) {
	l := Long{Facts: []Fact{
		{AgeGroup: "5 a 9 anos", Sex: Masculino, Value: 30},
		{AgeGroup: "0 a 4 anos", Sex: Masculino, Value: 120},
		{AgeGroup: "0 a 4 anos", Sex: Feminino, Value: 80},
		{AgeGroup: "0 a 4 anos", Sex: Total, Value: 200},
	}}
	rows := DemographicTable(l, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, "0 a 4 anos", rows[0].AgeGroup)
	assert.EqualValues(t, 200, rows[0].Total)
	assert.InDelta(t, 60.0, rows[0].PctMale, 1e-9)
	assert.InDelta(t, 40.0, rows[0].PctFemale, 1e-9)
	assert.Equal(t, TotalLabel, rows[2].AgeGroup)
	assert.EqualValues(t, 230, rows[2].Total)

	view := DemographicTableView(rows)
	assert.Equal(t, "60,00", view.Rows[0]["% Masculino"])
}

func TestFormatBR(t *testing.T) {
	assert.Equal(t, "1.234.567,89", FormatBR(1234567.891, 2))
	assert.Equal(t, "230", FormatBR(230, 0))
	assert.Equal(t, "-1.000", FormatBR(-1000, 0))
	assert.Equal(t, "0,00", FormatBR(0, 2))
}
