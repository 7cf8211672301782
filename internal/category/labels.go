package category

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const DefaultWrapWidth = 16

// Pattern keys accepted by NewLabeler.
const (
	PatternSewageMissing = "esgoto_inexistente"
	PatternSewagePrefix  = "esgoto_prefix"
	PatternWastePrefix   = "lixo_prefix"
	PatternBathrooms     = "banheiro"
)

var defaultPatterns = map[string]string{
	PatternSewageMissing: `(?i)^(?:Domicílios\s+Particulares\s+Permanentes\s+Ocupados,\s*)?Destina[cç][aã]o\s+do\s+esgoto\s+inexistente,\s*pois\s+n[aã]o\s+tinham\s+banheiro\s+nem\s+sanit[áa]rio\.?$`,
	PatternSewagePrefix:  `(?i)^(?:Domicílios\s+Particulares\s+Permanentes\s+Ocupados,\s*)?Destina[cç][aã]o\s+do\s+esgoto\s+do\s+banheiro\s+ou\s+sanit[áa]rio\s+ou\s+buraco\s+para\s+deje[cç][oõ]es\s*(?:é\s*)`,
	PatternWastePrefix:   `(?i)^(?:Domicílios\s+Particulares\s+Permanentes\s+Ocupados,\s*)?Destina[cç][aã]o\s+do\s+lixo(?:\s+do\s+domic[ií]lio)?\s*(?:é\s*)`,
	PatternBathrooms:     `(?i)^\s*(\d{1,2}\+?)\s+banheiros?\s+de\s+uso\s+exclusivo\s+com\s+chuveiro\s+e\s+vaso\s+sanit[\pL\w]+\s+(?:existentes\s+no\s+domic[\pL\w]+)?\s*$`,
}

var (
	reSpaces         = regexp.MustCompile(`\s+`)
	reSuffixN        = regexp.MustCompile(`_(\d+)\s*$`)
	reLeadingCom     = regexp.MustCompile(`(?i)^\s*Com\s+`)
	reInDwelling     = regexp.MustCompile(`(?i)\s+no\s+domic[ií]lio\s*$`)
	reSpecies        = regexp.MustCompile(`(?i)^Tipo\s+de\s+esp[eé]cie\s+é\s+`)
	reOrMore         = regexp.MustCompile(`(?i)\b(\d{1,2})\s+ou\s+mais\b`)
	reBathroomsShort = regexp.MustCompile(`(?i)^\s*(\d{1,2}\+?)\s+banheiros?\b`)
	reTitleSplit     = regexp.MustCompile(`\s*[—–\-:]\s*`)
	reTitleLead      = regexp.MustCompile(`(?i)^(Quantidade|Número|Percentual|Proporção|Tipo)\s+de\s+`)
)

// ExtraRoots are dwelling-type prefixes stripped from every label.
var ExtraRoots = []string{
	"Domicílios Particulares Permanentes Ocupados",
	"Domicílios Particulares Improvisados Ocupados",
	"Unidades de Habitação em Domicílios Coletivos Com Morador",
}

// Labeler shortens census category names for charts.
type Labeler struct {
	Width int

	sewageMissing *regexp.Regexp
	sewagePrefix  *regexp.Regexp
	wastePrefix   *regexp.Regexp
	bathrooms     *regexp.Regexp
}

// NewLabeler compiles the boilerplate patterns. Entries in overrides replace
// the defaults by key; width <= 0 means DefaultWrapWidth.
func NewLabeler(width int, overrides map[string]string) (*Labeler, error) {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	compiled := map[string]*regexp.Regexp{}
	for k, def := range defaultPatterns {
		p := def
		if o, ok := overrides[k]; ok && strings.TrimSpace(o) != "" {
			p = o
			if !strings.HasPrefix(p, "(?") {
				p = "(?i)" + p
			}
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("label pattern %s: %w", k, err)
		}
		compiled[k] = re
	}
	return &Labeler{
		Width:         width,
		sewageMissing: compiled[PatternSewageMissing],
		sewagePrefix:  compiled[PatternSewagePrefix],
		wastePrefix:   compiled[PatternWastePrefix],
		bathrooms:     compiled[PatternBathrooms],
	}, nil
}

var defaultLabeler, _ = NewLabeler(DefaultWrapWidth, nil)

// StripBoilerplate removes recurring non-informative wording from a category
// name using the default patterns.
func StripBoilerplate(s string) string { return defaultLabeler.StripBoilerplate(s) }

func (l *Labeler) StripBoilerplate(s string) string {
	if s == "" {
		return s
	}
	out := strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	if l.sewageMissing.MatchString(out) {
		return "sem banheiro nem sanitário"
	}
	out = l.sewagePrefix.ReplaceAllString(out, "")
	out = l.wastePrefix.ReplaceAllString(out, "")

	out = reSuffixN.ReplaceAllString(out, "")
	out = reLeadingCom.ReplaceAllString(out, "")
	out = reInDwelling.ReplaceAllString(out, "")
	out = reSpecies.ReplaceAllString(out, "")
	out = reOrMore.ReplaceAllString(out, "${1}+")

	if m := l.bathrooms.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	if m := reBathroomsShort.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(out, " "))
}

// ExtractRoots derives prefixes worth stripping from a chart title: the
// title and each of its dash or colon separated parts, minus a leading
// "Quantidade de" style phrase. Candidates shorter than 8 characters are
// dropped; longest first.
func ExtractRoots(title string) []string {
	t := strings.TrimSpace(title)
	if t == "" {
		return nil
	}
	cands := map[string]struct{}{t: {}}
	for _, p := range reTitleSplit.Split(t, -1) {
		if p = strings.TrimSpace(p); p != "" {
			cands[p] = struct{}{}
		}
	}
	seen := map[string]struct{}{}
	var out []string
	for c := range cands {
		cc := strings.TrimSpace(reTitleLead.ReplaceAllString(c, ""))
		if utf8.RuneCountInString(cc) < 8 {
			continue
		}
		if _, ok := seen[cc]; ok {
			continue
		}
		seen[cc] = struct{}{}
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(out[i]), utf8.RuneCountInString(out[j])
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})
	return out
}

// DominantPrefix returns the most frequent text before the first comma when
// it heads at least half of the labels (and at least two).
func DominantPrefix(labels []string) string {
	counts := map[string]int{}
	var order []string
	n := 0
	for _, l := range labels {
		if l == "" {
			continue
		}
		first, _, _ := strings.Cut(l, ",")
		first = strings.TrimSpace(first)
		if _, ok := counts[first]; !ok {
			order = append(order, first)
		}
		counts[first]++
		n++
	}
	if n == 0 {
		return ""
	}
	top, freq := "", 0
	for _, p := range order {
		if counts[p] > freq {
			top, freq = p, counts[p]
		}
	}
	if freq >= max(2, n/2) {
		return top
	}
	return ""
}

// SimplifyByRoots strips each root, followed by an optional ":" or ",",
// from the start of label.
func SimplifyByRoots(label string, roots []string) string {
	s := strings.TrimSpace(label)
	if s == "" {
		return s
	}
	for _, r := range roots {
		if r == "" {
			continue
		}
		q := regexp.QuoteMeta(r)
		for _, pat := range []string{`(?i)^(?:` + q + `)\s*:\s*`, `(?i)^(?:` + q + `)\s*,\s*`, `(?i)^(?:` + q + `)\s*`} {
			s = regexp.MustCompile(pat).ReplaceAllString(s, "")
		}
	}
	return strings.TrimSpace(s)
}

// WrapLabel breaks text into lines of at most width characters joined by br.
// A single word longer than width stays on its own line.
func WrapLabel(text string, width int, br string) string {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) <= width {
			cur += " " + w
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	lines = append(lines, cur)
	return strings.Join(lines, br)
}

// Simplify fills Simplified and Wrapped for each fact. Roots come from the
// title, the dominant label prefix and ExtraRoots.
func (l *Labeler) Simplify(facts []Fact, title string) []Fact {
	if len(facts) == 0 {
		return facts
	}
	labels := make([]string, len(facts))
	for i, f := range facts {
		labels[i] = f.Category
	}
	roots := ExtractRoots(title)
	if p := DominantPrefix(labels); p != "" {
		roots = append(roots, p)
	}
	for _, er := range ExtraRoots {
		if !contains(roots, er) {
			roots = append(roots, er)
		}
	}
	out := make([]Fact, len(facts))
	for i, f := range facts {
		f.Simplified = SimplifyByRoots(l.StripBoilerplate(f.Category), roots)
		f.Wrapped = WrapLabel(f.Simplified, l.Width, "<br>")
		out[i] = f
	}
	return out
}

// Simplify applies the default labeler with the given wrap width.
func Simplify(facts []Fact, title string, width int) []Fact {
	l := *defaultLabeler
	if width > 0 {
		l.Width = width
	}
	return l.Simplify(facts, title)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
