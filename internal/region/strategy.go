package region

import (
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/alias"
)

// Strategy picks one name out of a list of candidates (sheet names or
// column headers).
type Strategy struct {
	Name  string
	Match func(candidates []string) (string, bool)
}

// Exact matches the first of names present among the candidates, ignoring
// surrounding whitespace.
func Exact(names ...string) Strategy {
	return Strategy{
		Name: "exact:" + strings.Join(names, "|"),
		Match: func(candidates []string) (string, bool) {
			for _, n := range names {
				for _, c := range candidates {
					if strings.TrimSpace(c) == n {
						return c, true
					}
				}
			}
			return "", false
		},
	}
}

// Fuzzy matches the first candidate whose folded form contains every token.
func Fuzzy(tokens ...string) Strategy {
	return Strategy{
		Name: "fuzzy:" + strings.Join(tokens, "+"),
		Match: func(candidates []string) (string, bool) {
			for _, c := range candidates {
				f := fold(c)
				hit := true
				for _, tok := range tokens {
					if !strings.Contains(f, tok) {
						hit = false
						break
					}
				}
				if hit {
					return c, true
				}
			}
			return "", false
		},
	}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(alias.StripAccents(s)))
}

// Chain is an ordered list of strategies; the first match wins.
type Chain []Strategy

// Resolve returns the matched candidate and the name of the strategy that
// found it.
func (c Chain) Resolve(candidates []string) (match, strategy string, ok bool) {
	for _, s := range c {
		if m, ok := s.Match(candidates); ok {
			return m, s.Name, true
		}
	}
	return "", "", false
}

var (
	RMSheets = Chain{Exact("Composição RM", "Composicao_RM", "RM"), Fuzzy("metrop", "composi"), Fuzzy("metrop")}
	AUSheets = Chain{Exact("Composição AU", "Composicao_AU", "AU"), Fuzzy("aglomer", "urban"), Fuzzy("aglomer")}

	CodeColumns = Chain{Exact("COD_MUN"), Fuzzy("cod", "mun")}
	NameColumns = Chain{Exact("NOME_CATMETROPOL"), Fuzzy("nome", "metropol"), Fuzzy("nome", "aglomer"), Fuzzy("nome_rec")}
	UFColumns   = Chain{Exact("SIGLA_UF"), Fuzzy("uf")}
)
