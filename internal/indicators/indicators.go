// Package indicators computes dependency and ageing ratios on the census
// bracket grid.
package indicators

import (
	"math"
	"strconv"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/pyramid"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

// SmallDenominatorLimit is the working-age population under which ratios are
// flagged as unstable.
const SmallDenominatorLimit = 500

// Groups are the broad age groups the ratios are built from. Working age is
// 15 to 59 because the census brackets do not split at 65.
type Groups struct {
	Young   int64 // 0 to 14
	Working int64 // 15 to 59
	Elderly int64 // 60 and over
	Old70   int64 // 70 and over
	Total   int64
}

// Indicators are the ratios derived from Groups. A ratio whose denominator
// is zero is NaN.
type Indicators struct {
	Keys map[string]string
	Groups
	TotalDependency   float64
	YouthDependency   float64
	ElderlyDependency float64
	AgeingIndex       float64
	Share70           float64
	SmallDenominator  bool
}

var (
	young   = brackets("0 a 4 anos", "5 a 9 anos", "10 a 14 anos")
	working = brackets("15 a 19 anos", "20 a 24 anos", "25 a 29 anos", "30 a 39 anos", "40 a 49 anos", "50 a 59 anos")
	elderly = brackets("60 a 69 anos", "70 anos ou mais")
	old70   = brackets("70 anos ou mais")
)

func brackets(labels ...string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

// Add counts one fact into g. Labels are normalized first; brackets outside
// the grid only count toward Total.
func (g *Groups) Add(f pyramid.Fact) {
	a := pyramid.NormalizeAgeLabel(f.AgeGroup)
	g.Total += f.Value
	switch {
	case young[a]:
		g.Young += f.Value
	case working[a]:
		g.Working += f.Value
	case elderly[a]:
		g.Elderly += f.Value
	}
	if old70[a] {
		g.Old70 += f.Value
	}
}

func ratio(num, den int64, scale float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den) * scale
}

// Compute derives the ratios from g.
func Compute(g Groups) Indicators {
	return Indicators{
		Groups:            g,
		TotalDependency:   ratio(g.Young+g.Elderly, g.Working, 100),
		YouthDependency:   ratio(g.Young, g.Working, 100),
		ElderlyDependency: ratio(g.Elderly, g.Working, 100),
		AgeingIndex:       ratio(g.Elderly, g.Young, 100),
		Share70:           ratio(g.Old70, g.Total, 100),
		SmallDenominator:  g.Working < SmallDenominatorLimit,
	}
}

// FromLong computes the indicators over every fact of l. Sex is ignored
// except that Total rows are skipped so they are not counted twice.
func FromLong(l pyramid.Long) Indicators {
	var g Groups
	for _, f := range l.Facts {
		if f.Sex == pyramid.Total {
			continue
		}
		g.Add(f)
	}
	return Compute(g)
}

// ByGroup computes indicators per distinct combination of keys, in
// first-seen order.
func ByGroup(l pyramid.Long, keys ...string) []Indicators {
	index := map[string]int{}
	var groups []Groups
	var groupKeys []map[string]string
	for _, f := range l.Facts {
		if f.Sex == pyramid.Total {
			continue
		}
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = f.Keys[k]
		}
		id := strings.Join(parts, "\x00")
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Groups{})
			km := make(map[string]string, len(keys))
			for _, k := range keys {
				km[k] = f.Keys[k]
			}
			groupKeys = append(groupKeys, km)
		}
		groups[i].Add(f)
	}
	out := make([]Indicators, len(groups))
	for i, g := range groups {
		out[i] = Compute(g)
		out[i].Keys = groupKeys[i]
	}
	return out
}

// Columns are the value headers of Table, after the key columns.
var Columns = []string{
	"pop_0_14", "pop_15_59", "pop_60p", "pop_70p", "pop_total",
	"RDT", "RDJ", "RDI", "IE_60p", "Prop_70p", "denominador_pequeno",
}

// Table renders indicators with one row per group. NaN ratios are null.
func Table(rows []Indicators, keys ...string) *table.Table {
	t := table.New(append(append([]string(nil), keys...), Columns...)...)
	for _, in := range rows {
		r := make(map[string]string, len(t.Headers))
		for _, k := range keys {
			r[k] = in.Keys[k]
		}
		r["pop_0_14"] = strconv.FormatInt(in.Young, 10)
		r["pop_15_59"] = strconv.FormatInt(in.Working, 10)
		r["pop_60p"] = strconv.FormatInt(in.Elderly, 10)
		r["pop_70p"] = strconv.FormatInt(in.Old70, 10)
		r["pop_total"] = strconv.FormatInt(in.Total, 10)
		r["RDT"] = formatRatio(in.TotalDependency)
		r["RDJ"] = formatRatio(in.YouthDependency)
		r["RDI"] = formatRatio(in.ElderlyDependency)
		r["IE_60p"] = formatRatio(in.AgeingIndex)
		r["Prop_70p"] = formatRatio(in.Share70)
		r["denominador_pequeno"] = strconv.FormatBool(in.SmallDenominator)
		t.AppendRow(r)
	}
	return t
}

func formatRatio(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
