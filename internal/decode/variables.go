package decode

import (
	"regexp"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

// VariableDescriptions explains the fields the pipeline produces, for tooltips
// and generated documentation.
var VariableDescriptions = map[string]string{
	"CD_SETOR":         "Código do setor censitário (IBGE). Identificador geográfico mais granular.",
	"CD_MUN":           "Código do município segundo o IBGE.",
	"NM_MUN":           "Nome do município.",
	"CD_UF":            "Código da Unidade da Federação (estado) segundo o IBGE.",
	"NM_UF":            "Nome da Unidade da Federação (estado).",
	"CD_SITUACAO":      "Código detalhado da situação do setor censitário (urbana/rural e subtipos).",
	"SITUACAO_DET_TXT": "Descrição detalhada da situação do setor censitário.",
	"CD_TIPO":          "Código do tipo de setor censitário (ex: favela, agrovila, agrupamento indígena, etc).",
	"TP_SETOR_TXT":     "Descrição do tipo de setor censitário.",
	"SITUACAO":         "Situação macro do setor: Urbana (1,2,3) ou Rural (demais).",
	"V0001":            "Total de pessoas residentes no setor (população declarada).",
	"idade_grupo":      "Faixa etária agrupada (ex: 0 a 4 anos, 5 a 9 anos, ...).",
	"sexo":             "Sexo da população (Masculino, Feminino, Total).",
	"valor":            "Valor absoluto da população para o grupo/sexo/faixa etária.",
}

var variableLabels = map[string]string{
	"V0001": "Total de pessoas",
	"V0002": "Total de domicílios",
	"V0003": "Total de domicílios particulares",
	"V0004": "Total de domicílios coletivos",
	"V0005": "Média de moradores em domicílios particulares ocupados",
	"V0006": "Percentual de domicílios particulares ocupados imputados",
	"V0007": "Total de domicílios particulares ocupados",
}

// VariableLabel returns a human label for V0001..V0007, or the name itself.
func VariableLabel(col string) string {
	if l, ok := variableLabels[strings.ToUpper(col)]; ok {
		return l
	}
	return col
}

var (
	reDigitsOnly = regexp.MustCompile(`^\d+$`)
	reFloatCode  = regexp.MustCompile(`^(\d+)\.0+$`)
)

// NormalizeCodes trims the geographic codes and drops the ".0" left behind
// when a code column went through a float type. Other values are kept.
func NormalizeCodes(t *table.Table) *table.Table {
	out := t.Clone()
	for _, key := range []string{"CD_SETOR", "CD_MUN", "CD_UF"} {
		if !out.Has(key) {
			continue
		}
		for _, r := range out.Rows {
			v := strings.TrimSpace(r[key])
			if m := reFloatCode.FindStringSubmatch(v); m != nil {
				v = m[1]
			}
			if reDigitsOnly.MatchString(v) {
				r[key] = v
			}
		}
	}
	return out
}

// CoerceVariables rewrites every V000x cell in canonical numeric form. Cells
// that do not parse become null and are counted.
func CoerceVariables(t *table.Table) (*table.Table, int) {
	out := t.Clone()
	dropped := 0
	for _, h := range out.Headers {
		if len(h) != 5 || !strings.HasPrefix(h, "V000") {
			continue
		}
		for _, r := range out.Rows {
			if table.IsNull(r[h]) {
				r[h] = ""
				continue
			}
			f, ok := table.ParseNumber(r[h])
			if !ok {
				r[h] = ""
				dropped++
				continue
			}
			r[h] = table.FormatNumber(f)
		}
	}
	return out, dropped
}
