package pyramid

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// AgeGroups are the census age brackets in pyramid order.
var AgeGroups = []string{
	"0 a 4 anos", "5 a 9 anos", "10 a 14 anos", "15 a 19 anos",
	"20 a 24 anos", "25 a 29 anos", "30 a 39 anos", "40 a 49 anos",
	"50 a 59 anos", "60 a 69 anos", "70 anos ou mais",
}

const (
	Masculino = "Masculino"
	Feminino  = "Feminino"
	Total     = "Total"
)

// Sexes is the pyramid's sex axis.
var Sexes = []string{Masculino, Feminino}

var ageIndex = func() map[string]int {
	m := make(map[string]int, len(AgeGroups))
	for i, g := range AgeGroups {
		m[g] = i
	}
	return m
}()

// AgeIndex returns the position of label in AgeGroups, or -1.
func AgeIndex(label string) int {
	if i, ok := ageIndex[label]; ok {
		return i
	}
	return -1
}

var (
	reDashes    = regexp.MustCompile(`\s*-\s*`)
	reRange     = regexp.MustCompile(`(\d+)\s*a\s*(\d+)`)
	reOpenEnded = regexp.MustCompile(`(?i)(\d+)\s*(\+|anos?\s*ou\s*mais|ou\s*mais)`)
	reFirstNum  = regexp.MustCompile(`(\d+)`)
)

// NormalizeAgeLabel rewrites the bracket spellings found across sources into
// the canonical form: "30 a 34" and "30-34" become "30 a 34 anos", "70+" and
// "70 ou mais" become "70 anos ou mais".
func NormalizeAgeLabel(label string) string {
	s := strings.TrimSpace(label)
	s = strings.NewReplacer("–", "-", "—", "-").Replace(s)
	s = reDashes.ReplaceAllString(s, " a ")
	if m := reRange.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		return strconv.Itoa(a) + " a " + strconv.Itoa(b) + " anos"
	}
	if m := reOpenEnded.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return strconv.Itoa(n) + " anos ou mais"
	}
	if m := reFirstNum.FindStringSubmatch(s); m != nil {
		if n, _ := strconv.Atoi(m[1]); n >= 70 {
			return strconv.Itoa(n) + " anos ou mais"
		}
	}
	return s
}

// ageOrder ranks a label: its position in order, then labels outside order
// by numeric lower bound, then labels with no number.
func ageOrder(label string, order []string) int {
	for i, g := range order {
		if g == label {
			return i
		}
	}
	base := len(order)
	for _, re := range []*regexp.Regexp{reRange, reOpenEnded, reFirstNum} {
		if m := re.FindStringSubmatch(label); m != nil {
			n, _ := strconv.Atoi(m[1])
			return base + n
		}
	}
	return math.MaxInt
}
