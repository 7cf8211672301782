// Package region joins metropolitan region (RM) and urban agglomeration (AU)
// membership onto sector tables by municipality code.
package region

import (
	"regexp"
	"strings"
)

// Lookup maps a 7-digit municipality code to a region name.
type Lookup map[string]string

var (
	reFloatSuffix = regexp.MustCompile(`\.0+$`)
	reNonDigit    = regexp.MustCompile(`\D`)
)

// NormalizeMunicipality returns the 7-digit form of an IBGE municipality
// code. Short codes are zero-padded, longer ones keep their first 7 digits.
func NormalizeMunicipality(v string) string {
	s := reFloatSuffix.ReplaceAllString(strings.TrimSpace(v), "")
	s = reNonDigit.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}
	if len(s) > 7 {
		return s[:7]
	}
	return strings.Repeat("0", 7-len(s)) + s
}

// intermediaryRegions is a subset of the IBGE 2017 intermediary regions,
// keyed by the first four digits of the municipality code.
var intermediaryRegions = map[string]string{
	"3501": "São Paulo",
	"3502": "Santos",
	"3503": "Campinas",
	"3504": "Ribeirão Preto",
	"3505": "São José do Rio Preto",
	"3506": "Araçatuba",
	"3507": "Presidente Prudente",
	"3508": "Marília",
	"3509": "Bauru",
	"3510": "Araraquara",
	"3511": "São Carlos",
	"3512": "Piracicaba",
	"3513": "Sorocaba",
	"3514": "Itapetininga",
	"3515": "Registro",
	"3550": "São Paulo",

	"3301": "Rio de Janeiro",
	"3302": "Campos dos Goytacazes",
	"3303": "Volta Redonda",
	"3304": "Rio de Janeiro",

	"3101": "Belo Horizonte",
	"3102": "Uberlândia",
	"3103": "Juiz de Fora",
	"3104": "Montes Claros",

	"2901": "Salvador",
	"2902": "Feira de Santana",
	"2903": "Vitória da Conquista",
	"2304": "Fortaleza",

	"5002": "Campo Grande",
	"1200": "Rio Branco",
}

// IntermediaryRegion returns the intermediary region name for a
// municipality code, if the code's prefix is known.
func IntermediaryRegion(code string) (string, bool) {
	c := NormalizeMunicipality(code)
	if c == "" || c == "0000000" {
		return "", false
	}
	name, ok := intermediaryRegions[c[:4]]
	return name, ok
}
