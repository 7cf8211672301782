package pyramid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

type sourceKind int

const (
	kindWide sourceKind = iota + 1
	kindLong
)

// Source is either a wide sector table or an already long table. Both are
// normalized to Long before aggregation.
type Source struct {
	kind sourceKind
	wide *table.Table
	long Long
}

func FromWide(t *table.Table) Source { return Source{kind: kindWide, wide: t} }

func FromLong(l Long) Source { return Source{kind: kindLong, long: l} }

// Detect picks the shape of t: tables carrying idade_grupo, sexo and valor
// are long, anything else is treated as wide.
func Detect(t *table.Table) (Source, error) {
	if t.HasAll(ColAge, ColSex, ColValue) {
		l, err := LongFromTable(t)
		if err != nil {
			return Source{}, err
		}
		return FromLong(l), nil
	}
	return FromWide(t), nil
}

// IsWide reports whether s wraps a wide table.
func (s Source) IsWide() bool { return s.kind == kindWide }

// Long returns the long form of s, reshaping if needed.
func (s Source) Long() (Long, error) {
	switch s.kind {
	case kindWide:
		return WideToLong(s.wide)
	case kindLong:
		return s.long, nil
	}
	return Long{}, fmt.Errorf("empty pyramid source: %w", ErrDatasetShape)
}

// Aggregate sums valor by groupBy plus idade_grupo and sexo. Group keys
// that are not key columns of the source are ignored. Rows come back sorted
// by the group keys, then the canonical bracket order, then sex.
func Aggregate(src Source, groupBy ...string) (Long, error) {
	l, err := src.Long()
	if err != nil {
		return Long{}, err
	}
	groupBy = presentKeys(groupBy, l.KeyColumns)

	type bucket struct {
		fact Fact
		key  string
	}
	index := map[string]int{}
	var buckets []bucket
	for _, f := range l.Facts {
		parts := make([]string, 0, len(groupBy)+2)
		for _, g := range groupBy {
			parts = append(parts, f.Keys[g])
		}
		parts = append(parts, f.AgeGroup, f.Sex)
		k := strings.Join(parts, "\x00")
		if i, ok := index[k]; ok {
			buckets[i].fact.Value += f.Value
			continue
		}
		keys := make(map[string]string, len(groupBy))
		for _, g := range groupBy {
			keys[g] = f.Keys[g]
		}
		index[k] = len(buckets)
		buckets = append(buckets, bucket{
			fact: Fact{Keys: keys, AgeGroup: f.AgeGroup, Sex: f.Sex, Value: f.Value},
			key:  k,
		})
	}

	out := Long{KeyColumns: append([]string(nil), groupBy...), Coerced: l.Coerced, Missing: l.Missing}
	out.Facts = make([]Fact, len(buckets))
	for i, b := range buckets {
		out.Facts[i] = b.fact
	}
	SortFacts(out.Facts, groupBy)
	return out, nil
}

func presentKeys(want, have []string) []string {
	known := make(map[string]bool, len(have))
	for _, k := range have {
		known[k] = true
	}
	out := make([]string, 0, len(want))
	for _, k := range want {
		if known[k] && !contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// SortFacts orders facts by keys, canonical bracket order and sex.
func SortFacts(facts []Fact, keys []string) {
	sort.SliceStable(facts, func(i, j int) bool {
		a, b := facts[i], facts[j]
		for _, k := range keys {
			if a.Keys[k] != b.Keys[k] {
				return a.Keys[k] < b.Keys[k]
			}
		}
		if oa, ob := ageOrder(a.AgeGroup, AgeGroups), ageOrder(b.AgeGroup, AgeGroups); oa != ob {
			return oa < ob
		}
		if a.AgeGroup != b.AgeGroup {
			return a.AgeGroup < b.AgeGroup
		}
		return a.Sex < b.Sex
	})
}

// Pad collapses l onto the full sex by bracket grid for the given order,
// filling absent cells with 0. Brackets are normalized first; labels outside
// order are dropped. Output is sex-major.
func Pad(l Long, order []string) Long {
	if len(order) == 0 {
		order = AgeGroups
	}
	sums := map[[2]string]int64{}
	for _, f := range l.Facts {
		sums[[2]string{f.Sex, NormalizeAgeLabel(f.AgeGroup)}] += f.Value
	}
	out := Long{Facts: make([]Fact, 0, len(Sexes)*len(order))}
	for _, s := range Sexes {
		for _, a := range order {
			out.Facts = append(out.Facts, Fact{Keys: map[string]string{}, AgeGroup: a, Sex: s, Value: sums[[2]string{s, a}]})
		}
	}
	return out
}
