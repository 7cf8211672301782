// Package decode fills in the coded and textual forms of the sector
// classification fields and derives the urban/rural macro flag.
package decode

import (
	"strconv"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

const (
	Urbana = "Urbana"
	Rural  = "Rural"
)

// SituacaoDetalhada decodes CD_SITUACAO.
var SituacaoDetalhada = map[int]string{
	1: "Área urbana de alta densidade de edificações de cidade ou vila",
	2: "Área urbana de baixa densidade de edificações de cidade ou vila",
	3: "Núcleo urbano",
	5: "Aglomerado rural - Povoado",
	6: "Aglomerado rural - Núcleo rural",
	7: "Aglomerado rural - Lugarejo",
	8: "Área rural (exclusive aglomerados)",
	9: "Massas de água",
}

// TipoSetor decodes CD_TIPO.
var TipoSetor = map[int]string{
	0: "Não especial",
	1: "Favela e Comunidade Urbana",
	2: "Quartel e base militar",
	3: "Alojamento / acampamento",
	4: "Setor com baixo patamar domiciliar",
	5: "Agrupamento indígena",
	6: "Unidade prisional",
	7: "Convento / hospital / ILPI / IACA",
	8: "Agrovila do PA",
	9: "Agrupamento quilombola",
}

var (
	situacaoCodes = invert(SituacaoDetalhada)
	tipoCodes     = invert(TipoSetor)
)

// UrbanLabels are the detailed situations counted as urban.
var UrbanLabels = map[string]bool{
	SituacaoDetalhada[1]: true,
	SituacaoDetalhada[2]: true,
	SituacaoDetalhada[3]: true,
}

func invert(m map[int]string) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// parseCode accepts "3", " 3 " and "3.0".
func parseCode(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// MacroFromCode classifies a detailed situation code: 1, 2 and 3 are urban,
// any other integer is rural.
func MacroFromCode(code string) (string, bool) {
	n, ok := parseCode(code)
	if !ok {
		return "", false
	}
	if n >= 1 && n <= 3 {
		return Urbana, true
	}
	return Rural, true
}

// MacroFromText classifies a detailed situation label.
func MacroFromText(label string) string {
	if UrbanLabels[strings.TrimSpace(label)] {
		return Urbana
	}
	return Rural
}

func SituacaoText(code string) (string, bool) {
	n, ok := parseCode(code)
	if !ok {
		return "", false
	}
	s, ok := SituacaoDetalhada[n]
	return s, ok
}

func SituacaoCode(label string) (string, bool) {
	n, ok := situacaoCodes[strings.TrimSpace(label)]
	if !ok {
		return "", false
	}
	return strconv.Itoa(n), true
}

func TipoText(code string) (string, bool) {
	n, ok := parseCode(code)
	if !ok {
		return "", false
	}
	s, ok := TipoSetor[n]
	return s, ok
}

func TipoCode(label string) (string, bool) {
	n, ok := tipoCodes[strings.TrimSpace(label)]
	if !ok {
		return "", false
	}
	return strconv.Itoa(n), true
}

// Report counts rows whose pre-existing code and text disagree with the
// dictionaries. Such rows are kept as they are.
type Report struct {
	SituacaoMismatches int
	TipoMismatches     int
}

type pair struct {
	code, text string
	toText     func(string) (string, bool)
	toCode     func(string) (string, bool)
}

var pairs = []pair{
	{"CD_SITUACAO", "SITUACAO_DET_TXT", SituacaoText, SituacaoCode},
	{"CD_TIPO", "TP_SETOR_TXT", TipoText, TipoCode},
}

// EnsureDecodes returns a copy of t in which both forms of each
// classification exist whenever one of them did, plus SITUACAO. Columns
// already present are never recomputed.
func EnsureDecodes(t *table.Table) (*table.Table, Report) {
	out := t.Clone()
	var rep Report
	for i, p := range pairs {
		hasCode, hasText := out.Has(p.code), out.Has(p.text)
		switch {
		case hasCode && hasText:
			n := countMismatches(out, p)
			if i == 0 {
				rep.SituacaoMismatches = n
			} else {
				rep.TipoMismatches = n
			}
		case hasText:
			out.AddColumn(p.code)
			for _, r := range out.Rows {
				r[p.code], _ = p.toCode(r[p.text])
			}
		case hasCode:
			out.AddColumn(p.text)
			for _, r := range out.Rows {
				r[p.text], _ = p.toText(r[p.code])
			}
		}
	}
	if !out.Has("SITUACAO") {
		switch {
		case out.Has("CD_SITUACAO"):
			out.AddColumn("SITUACAO")
			for _, r := range out.Rows {
				r["SITUACAO"], _ = MacroFromCode(r["CD_SITUACAO"])
			}
		case out.Has("SITUACAO_DET_TXT"):
			out.AddColumn("SITUACAO")
			for _, r := range out.Rows {
				r["SITUACAO"] = MacroFromText(r["SITUACAO_DET_TXT"])
			}
		}
	}
	return out, rep
}

func countMismatches(t *table.Table, p pair) int {
	n := 0
	for _, r := range t.Rows {
		code, text := r[p.code], r[p.text]
		if table.IsNull(code) || table.IsNull(text) {
			continue
		}
		want, ok := p.toText(code)
		if !ok || want != strings.TrimSpace(text) {
			n++
		}
	}
	return n
}
