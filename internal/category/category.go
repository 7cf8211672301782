// Package category builds category/value breakdowns from groups of mutually
// exclusive indicator columns, such as household sanitation or waste
// disposal buckets.
package category

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

// Fact is one category of a breakdown.
type Fact struct {
	Category   string
	Value      float64
	Percent    float64
	Simplified string
	Wrapped    string
}

// Aggregate sums each listed column over all rows. Columns absent from t,
// without any numeric cell, or with a non-positive total are left out.
// Output follows the order of columns.
func Aggregate(t *table.Table, columns []string) []Fact {
	var out []Fact
	for _, c := range columns {
		if !t.Has(c) {
			continue
		}
		sum, seen := 0.0, false
		for _, r := range t.Rows {
			if v, ok := table.ParseNumber(r[c]); ok {
				sum += v
				seen = true
			}
		}
		if !seen || sum <= 0 {
			continue
		}
		out = append(out, Fact{Category: c, Value: sum})
	}
	return out
}

// Percent returns a copy of facts with Value and Percent set to each
// category's share of the total, in percent.
func Percent(facts []Fact) []Fact {
	total := 0.0
	for _, f := range facts {
		total += f.Value
	}
	out := make([]Fact, 0, len(facts))
	for _, f := range facts {
		if total > 0 {
			f.Percent = f.Value / total * 100
		}
		f.Value = f.Percent
		out = append(out, f)
	}
	return out
}

// Shares fills Percent and keeps the absolute Value.
func Shares(facts []Fact) []Fact {
	total := 0.0
	for _, f := range facts {
		total += f.Value
	}
	out := make([]Fact, len(facts))
	for i, f := range facts {
		if total > 0 {
			f.Percent = f.Value / total * 100
		}
		out[i] = f
	}
	return out
}

// Group is one configured breakdown.
type Group struct {
	Title   string   `yaml:"title"`
	Chart   string   `yaml:"chart"`
	Columns []string `yaml:"columns"`
}

type groupsFile struct {
	Groups []Group `yaml:"groups"`
}

// ErrNoGroups is returned when a groups file declares nothing usable.
var ErrNoGroups = errors.New("no category groups")

// LoadGroups reads the groups list of a categories YAML file. Groups without
// columns are dropped; a missing title becomes "Indicador" and a missing
// chart "bar".
func LoadGroups(path string) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups %s: %w", path, err)
	}
	return ParseGroups(data)
}

func ParseGroups(data []byte) ([]Group, error) {
	var f groupsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	var out []Group
	for _, g := range f.Groups {
		if len(g.Columns) == 0 {
			continue
		}
		if g.Title == "" {
			g.Title = "Indicador"
		}
		if g.Chart == "" {
			g.Chart = "bar"
		}
		out = append(out, g)
	}
	if len(out) == 0 {
		return nil, ErrNoGroups
	}
	return out, nil
}

// Present returns the group's columns that exist in t.
func (g Group) Present(t *table.Table) []string {
	var cols []string
	for _, c := range g.Columns {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}
