package alias

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	foldMarks   = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	reNonAlnum  = regexp.MustCompile(`[^A-Za-z0-9]+`)
	reVariable  = regexp.MustCompile(`(?i)^v000[1-7]$`)
	reHeaderTok = regexp.MustCompile(`[a-z0-9]+`)
)

// StripAccents removes combining marks after compatibility decomposition.
func StripAccents(s string) string {
	out, _, err := transform.String(foldMarks, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize folds a column name into the token form used for alias matching:
// accents removed, runs of non-alphanumerics collapsed to "_", uppercased.
func Normalize(s string) string {
	s = StripAccents(s)
	s = reNonAlnum.ReplaceAllString(s, "_")
	return strings.ToUpper(strings.Trim(s, "_"))
}

// headerTokens splits a column name into lowercase accent-free tokens.
func headerTokens(name string) []string {
	return reHeaderTok.FindAllString(strings.ToLower(StripAccents(name)), -1)
}

// tokenSimilarity is the Jaccard index over the token sets of a and b.
func tokenSimilarity(a, b string) float64 {
	ta, tb := map[string]struct{}{}, map[string]struct{}{}
	for _, t := range headerTokens(a) {
		ta[t] = struct{}{}
	}
	for _, t := range headerTokens(b) {
		tb[t] = struct{}{}
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}
