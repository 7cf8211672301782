package decode

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

func TestDictionariesAreReversible(t *testing.T) {
	for code, label := range SituacaoDetalhada {
		got, ok := SituacaoCode(label)
		require.True(t, ok, label)
		assert.Equal(t, strconv.Itoa(code), got)
		text, ok := SituacaoText(got)
		require.True(t, ok)
		assert.Equal(t, label, text)
	}
	for code, label := range TipoSetor {
		got, ok := TipoCode(label)
		require.True(t, ok, label)
		assert.Equal(t, strconv.Itoa(code), got)
	}
	assert.Len(t, SituacaoDetalhada, 8)
	assert.Len(t, TipoSetor, 10)
}

func TestMacroFromCode(t *testing.T) {
	for _, c := range []string{"1", "2", "3", " 3 ", "3.0"} {
		got, ok := MacroFromCode(c)
		require.True(t, ok, c)
		assert.Equal(t, Urbana, got, c)
	}
	for _, c := range []string{"5", "8", "9", "0"} {
		got, ok := MacroFromCode(c)
		require.True(t, ok, c)
		assert.Equal(t, Rural, got, c)
	}
	_, ok := MacroFromCode("x")
	assert.False(t, ok)
	_, ok = MacroFromCode("")
	assert.False(t, ok)

	assert.Equal(t, Urbana, MacroFromText("Núcleo urbano"))
	assert.Equal(t, Rural, MacroFromText("Massas de água"))
}

func TestEnsureDecodesFromCode(t *testing.T) {
	tb := table.New("CD_SETOR", "CD_SITUACAO", "CD_TIPO")
	tb.AppendRow(map[string]string{"CD_SETOR": "1", "CD_SITUACAO": "1", "CD_TIPO": "1"})
	tb.AppendRow(map[string]string{"CD_SETOR": "2", "CD_SITUACAO": "8", "CD_TIPO": "42"})
	tb.AppendRow(map[string]string{"CD_SETOR": "3", "CD_SITUACAO": "", "CD_TIPO": ""})

	out, rep := EnsureDecodes(tb)
	assert.Zero(t, rep)
	require.True(t, out.HasAll("SITUACAO_DET_TXT", "TP_SETOR_TXT", "SITUACAO"))
	assert.False(t, tb.Has("SITUACAO"))

	assert.Equal(t, SituacaoDetalhada[1], out.Rows[0]["SITUACAO_DET_TXT"])
	assert.Equal(t, "Favela e Comunidade Urbana", out.Rows[0]["TP_SETOR_TXT"])
	assert.Equal(t, Urbana, out.Rows[0]["SITUACAO"])
	assert.Equal(t, Rural, out.Rows[1]["SITUACAO"])
	// unknown codes and nulls decode to null
	assert.Equal(t, "", out.Rows[1]["TP_SETOR_TXT"])
	assert.Equal(t, "", out.Rows[2]["SITUACAO_DET_TXT"])
	assert.Equal(t, "", out.Rows[2]["SITUACAO"])
}

func TestEnsureDecodesFromText(t *testing.T) {
	tb := table.New("SITUACAO_DET_TXT", "TP_SETOR_TXT")
	tb.AppendRow(map[string]string{"SITUACAO_DET_TXT": "Aglomerado rural - Povoado", "TP_SETOR_TXT": "Unidade prisional"})

	out, _ := EnsureDecodes(tb)
	assert.Equal(t, "5", out.Rows[0]["CD_SITUACAO"])
	assert.Equal(t, "6", out.Rows[0]["CD_TIPO"])
	assert.Equal(t, Rural, out.Rows[0]["SITUACAO"])
}

func TestEnsureDecodesTrustsExistingPairs(t *testing.T) {
	tb := table.New("CD_SITUACAO", "SITUACAO_DET_TXT", "CD_TIPO", "TP_SETOR_TXT", "SITUACAO")
	tb.AppendRow(map[string]string{
		"CD_SITUACAO": "1", "SITUACAO_DET_TXT": "Massas de água",
		"CD_TIPO": "0", "TP_SETOR_TXT": "Não especial",
		"SITUACAO": "Rural",
	})
	tb.AppendRow(map[string]string{
		"CD_SITUACAO": "9", "SITUACAO_DET_TXT": "Massas de água",
		"CD_TIPO": "0", "TP_SETOR_TXT": "",
		"SITUACAO": "Rural",
	})

	out, rep := EnsureDecodes(tb)
	assert.Equal(t, Report{SituacaoMismatches: 1}, rep)
	// nothing is recomputed
	assert.Equal(t, "Massas de água", out.Rows[0]["SITUACAO_DET_TXT"])
	assert.Equal(t, "Rural", out.Rows[0]["SITUACAO"])
	assert.Equal(t, tb.Headers, out.Headers)

	again, rep2 := EnsureDecodes(out)
	assert.Equal(t, rep, rep2)
	assert.Equal(t, out.Rows, again.Rows)
}

func TestNormalizeCodes(t *testing.T) {
	tb := table.New("CD_SETOR", "CD_MUN", "CD_UF")
	tb.AppendRow(map[string]string{"CD_SETOR": " 355030801000001 ", "CD_MUN": "3550308.0", "CD_UF": "35.00"})
	tb.AppendRow(map[string]string{"CD_SETOR": "abc", "CD_MUN": "", "CD_UF": "3.5"})

	out := NormalizeCodes(tb)
	assert.Equal(t, "355030801000001", out.Rows[0]["CD_SETOR"])
	assert.Equal(t, "3550308", out.Rows[0]["CD_MUN"])
	assert.Equal(t, "35", out.Rows[0]["CD_UF"])
	assert.Equal(t, "abc", out.Rows[1]["CD_SETOR"])
	assert.Equal(t, "3.5", out.Rows[1]["CD_UF"])
}

func TestCoerceVariables(t *testing.T) {
	tb := table.New("V0001", "V0005", "V00111", "NM_MUN")
	tb.AppendRow(map[string]string{"V0001": "12.0", "V0005": "3,2", "V00111": "x", "NM_MUN": "7.0"})
	tb.AppendRow(map[string]string{"V0001": "n/a", "V0005": " ", "V00111": "1", "NM_MUN": "a"})

	out, dropped := CoerceVariables(tb)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "12", out.Rows[0]["V0001"])
	assert.Equal(t, "3.2", out.Rows[0]["V0005"])
	assert.Equal(t, "", out.Rows[1]["V0001"])
	assert.Equal(t, "", out.Rows[1]["V0005"])
	// only V0001..V0009 style names are touched
	assert.Equal(t, "x", out.Rows[0]["V00111"])
	assert.Equal(t, "7.0", out.Rows[0]["NM_MUN"])
}

func TestVariableLabel(t *testing.T) {
	assert.Equal(t, "Total de pessoas", VariableLabel("v0001"))
	assert.Equal(t, "V0099", VariableLabel("V0099"))
}
