// Package pyramid turns the wide age/sex sector columns into a long
// population table and aggregates it for age pyramids.
package pyramid

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/decode"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

// ErrDatasetShape means none of the age/sex columns could be located.
var ErrDatasetShape = errors.New("age/sex columns not found (expected 11 per sex)")

// IDColumns are carried from the wide table onto every fact, when present.
var IDColumns = []string{
	"CD_SETOR", "CD_MUN", "NM_MUN", "CD_UF", "NM_UF",
	"CD_SITUACAO", "SITUACAO", "SITUACAO_DET_TXT", "CD_TIPO", "TP_SETOR_TXT", "V0001",
	"RM_NOME", "AU_NOME", "NM_RGINT", "NM_RGI", "TIPO_RM_AU", "NOME_RM_AU",
}

const (
	ColAge   = "idade_grupo"
	ColSex   = "sexo"
	ColValue = "valor"
)

// Fact is one (keys, age bracket, sex) population count. Keys may be shared
// between facts of the same source row and must not be modified.
type Fact struct {
	Keys     map[string]string
	AgeGroup string
	Sex      string
	Value    int64
}

// Long is the long-form population table.
type Long struct {
	KeyColumns []string
	Facts      []Fact
	// Coerced counts non-null cells that were not clean non-negative integers
	// and were truncated or replaced by 0.
	Coerced int
	// Missing counts null cells read as 0.
	Missing int
}

// Total sums Value over all facts.
func (l Long) Total() int64 {
	var n int64
	for _, f := range l.Facts {
		n += f.Value
	}
	return n
}

// Groups counts the distinct key tuples among the facts.
func (l Long) Groups() int {
	seen := map[string]bool{}
	parts := make([]string, len(l.KeyColumns))
	for _, f := range l.Facts {
		for i, k := range l.KeyColumns {
			parts[i] = f.Keys[k]
		}
		seen[strings.Join(parts, "\x00")] = true
	}
	return len(seen)
}

var suffixDigit = regexp.MustCompile(`_\d+$`)

func agePattern(sex, group string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^Sexo\s*` + sex + `\s*,\s*` + regexp.QuoteMeta(group) + `\s*(?:_\d+)?$`)
}

type ageColumn struct {
	header string
	group  string
	sex    string
}

var (
	malePatterns   = make([]*regexp.Regexp, len(AgeGroups))
	femalePatterns = make([]*regexp.Regexp, len(AgeGroups))
)

func init() {
	for i, g := range AgeGroups {
		malePatterns[i] = agePattern("masculino", g)
		femalePatterns[i] = agePattern("feminino", g)
	}
}

// PickAgeColumns finds, for each bracket, the first male and female header
// matching "Sexo <sexo>, <bracket>" with an optional "_<n>" suffix.
func PickAgeColumns(headers []string) (male, female []string) {
	for _, c := range locateAgeColumns(headers) {
		if c.sex == Masculino {
			male = append(male, c.header)
		} else {
			female = append(female, c.header)
		}
	}
	return male, female
}

func locateAgeColumns(headers []string) []ageColumn {
	var male, female []ageColumn
	first := func(re *regexp.Regexp) (string, bool) {
		for _, h := range headers {
			if re.MatchString(strings.TrimSpace(h)) {
				return h, true
			}
		}
		return "", false
	}
	for i, g := range AgeGroups {
		if h, ok := first(malePatterns[i]); ok {
			male = append(male, ageColumn{header: h, group: g, sex: Masculino})
		}
		if h, ok := first(femalePatterns[i]); ok {
			female = append(female, ageColumn{header: h, group: g, sex: Feminino})
		}
	}
	return append(male, female...)
}

// ParseKey splits a wide header into sex and bracket. Headers that do not
// start with "Sexo masculino"/"Sexo feminino" are reported as Total.
func ParseKey(header string) (sex, age string) {
	s := strings.TrimSpace(header)
	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "sexo masculino"):
		sex = Masculino
	case strings.HasPrefix(low, "sexo feminino"):
		sex = Feminino
	default:
		return Total, strings.TrimSpace(suffixDigit.ReplaceAllString(s, ""))
	}
	if _, rest, ok := strings.Cut(s, ","); ok {
		age = strings.TrimSpace(rest)
	}
	return sex, strings.TrimSpace(suffixDigit.ReplaceAllString(age, ""))
}

// WideToLong melts the age/sex columns of a wide sector table. Identifier
// columns from IDColumns and extraIDs are carried on each fact. Values that
// are missing or not numeric count as 0; negatives are clamped to 0. Cells
// that end up 0 produce no fact.
func WideToLong(t *table.Table, extraIDs ...string) (Long, error) {
	return wideToLong(t, false, extraIDs)
}

// WideToLongDense is WideToLong keeping one fact per sector and located
// column, zero values included.
func WideToLongDense(t *table.Table, extraIDs ...string) (Long, error) {
	return wideToLong(t, true, extraIDs)
}

func wideToLong(t *table.Table, keepZeros bool, extraIDs []string) (Long, error) {
	cols := locateAgeColumns(t.Headers)
	if len(cols) == 0 {
		return Long{}, fmt.Errorf("wide to long: %w", ErrDatasetShape)
	}

	deriveMacro := !t.Has("SITUACAO") && t.Has("CD_SITUACAO")
	var ids []string
	seen := map[string]bool{}
	for _, c := range append(append([]string(nil), IDColumns...), extraIDs...) {
		if seen[c] {
			continue
		}
		seen[c] = true
		if t.Has(c) || (c == "SITUACAO" && deriveMacro) {
			ids = append(ids, c)
		}
	}

	keys := make([]map[string]string, len(t.Rows))
	for i, r := range t.Rows {
		k := make(map[string]string, len(ids))
		for _, c := range ids {
			k[c] = r[c]
		}
		if deriveMacro {
			k["SITUACAO"], _ = decode.MacroFromCode(r["CD_SITUACAO"])
		}
		keys[i] = k
	}

	out := Long{KeyColumns: ids}
	if keepZeros {
		out.Facts = make([]Fact, 0, len(cols)*len(t.Rows))
	}
	for _, c := range cols {
		for i, r := range t.Rows {
			v, state := coerceCount(r[c.header])
			switch state {
			case cellMissing:
				out.Missing++
			case cellCoerced:
				out.Coerced++
			}
			if v == 0 && !keepZeros {
				continue
			}
			out.Facts = append(out.Facts, Fact{Keys: keys[i], AgeGroup: c.group, Sex: c.sex, Value: v})
		}
	}
	return out, nil
}

type cellState int

const (
	cellClean cellState = iota
	cellMissing
	cellCoerced
)

func coerceCount(raw string) (int64, cellState) {
	if table.IsNull(raw) {
		return 0, cellMissing
	}
	f, ok := table.ParseNumber(raw)
	if !ok {
		return 0, cellCoerced
	}
	if f < 0 {
		return 0, cellCoerced
	}
	n := math.Trunc(f)
	if n != f {
		return int64(n), cellCoerced
	}
	return int64(n), cellClean
}

// Table renders the long form with key columns followed by idade_grupo,
// sexo and valor.
func (l Long) Table() *table.Table {
	headers := append(append([]string(nil), l.KeyColumns...), ColAge, ColSex, ColValue)
	t := table.New(headers...)
	for _, f := range l.Facts {
		row := make(map[string]string, len(headers))
		for _, k := range l.KeyColumns {
			row[k] = f.Keys[k]
		}
		row[ColAge] = f.AgeGroup
		row[ColSex] = f.Sex
		row[ColValue] = fmt.Sprint(f.Value)
		t.AppendRow(row)
	}
	return t
}

// LongFromTable reads a table that already has idade_grupo, sexo and valor.
// Every other column becomes a key column.
func LongFromTable(t *table.Table) (Long, error) {
	if !t.HasAll(ColAge, ColSex, ColValue) {
		return Long{}, fmt.Errorf("long table needs %s, %s and %s: %w", ColAge, ColSex, ColValue, table.ErrMissingColumn)
	}
	var out Long
	for _, h := range t.Headers {
		if h != ColAge && h != ColSex && h != ColValue {
			out.KeyColumns = append(out.KeyColumns, h)
		}
	}
	for _, r := range t.Rows {
		k := make(map[string]string, len(out.KeyColumns))
		for _, c := range out.KeyColumns {
			k[c] = r[c]
		}
		v, state := coerceCount(r[ColValue])
		switch state {
		case cellMissing:
			out.Missing++
		case cellCoerced:
			out.Coerced++
		}
		out.Facts = append(out.Facts, Fact{Keys: k, AgeGroup: strings.TrimSpace(r[ColAge]), Sex: strings.TrimSpace(r[ColSex]), Value: v})
	}
	return out, nil
}
