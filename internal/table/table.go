// Package table holds the row-oriented string table every pipeline stage
// reads and writes. An empty or whitespace-only cell is treated as null.
package table

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when an operation needs a column the table lacks.
var ErrMissingColumn = errors.New("missing column")

type Table struct {
	Path    string
	Headers []string
	Rows    []map[string]string
}

// New builds an empty table with the given headers.
func New(headers ...string) *Table {
	return &Table{Headers: append([]string(nil), headers...)}
}

// FromRecords builds a table from a header row and positional records.
func FromRecords(headers []string, records [][]string) *Table {
	t := New(headers...)
	for _, rec := range records {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Path: t.Path, Headers: append([]string(nil), t.Headers...)}
	out.Rows = make([]map[string]string, len(t.Rows))
	for i, r := range t.Rows {
		cp := make(map[string]string, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

func (t *Table) Index(col string) int {
	for i, h := range t.Headers {
		if h == col {
			return i
		}
	}
	return -1
}

// HasAll reports whether every column is present.
func (t *Table) HasAll(cols ...string) bool {
	for _, c := range cols {
		if !t.Has(c) {
			return false
		}
	}
	return true
}

// AddColumn appends col to the headers if absent. Existing rows get a null cell.
func (t *Table) AddColumn(col string) {
	if t.Has(col) {
		return
	}
	t.Headers = append(t.Headers, col)
	for _, r := range t.Rows {
		if _, ok := r[col]; !ok {
			r[col] = ""
		}
	}
}

// AppendRow adds a row; keys outside the headers are kept but not exported.
func (t *Table) AppendRow(row map[string]string) {
	t.Rows = append(t.Rows, row)
}

// Rename returns a copy with columns renamed per mapping. Header order is kept.
// When two source columns map onto the same name the first one wins and the
// later one keeps its original name.
func (t *Table) Rename(mapping map[string]string) *Table {
	out := t.Clone()
	if len(mapping) == 0 {
		return out
	}
	final := make(map[string]string, len(t.Headers))
	taken := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		if _, renamed := mapping[h]; !renamed {
			taken[h] = true
		}
	}
	for _, h := range t.Headers {
		to, ok := mapping[h]
		if !ok || to == h {
			final[h] = h
			taken[h] = true
			continue
		}
		if taken[to] {
			final[h] = h
			taken[h] = true
			continue
		}
		final[h] = to
		taken[to] = true
	}
	for i, h := range out.Headers {
		out.Headers[i] = final[h]
	}
	for i, r := range t.Rows {
		nr := make(map[string]string, len(r))
		for k, v := range r {
			if to, ok := final[k]; ok {
				nr[to] = v
			} else {
				nr[k] = v
			}
		}
		out.Rows[i] = nr
	}
	return out
}

// Select returns a copy restricted to cols, in that order. Unknown columns
// are reported with ErrMissingColumn.
func (t *Table) Select(cols ...string) (*Table, error) {
	for _, c := range cols {
		if !t.Has(c) {
			return nil, fmt.Errorf("select %q: %w", c, ErrMissingColumn)
		}
	}
	out := New(cols...)
	out.Path = t.Path
	for _, r := range t.Rows {
		nr := make(map[string]string, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}

// Filter returns a copy with the rows for which keep returns true.
func (t *Table) Filter(keep func(row map[string]string) bool) *Table {
	out := New(t.Headers...)
	out.Path = t.Path
	for _, r := range t.Rows {
		if keep(r) {
			cp := make(map[string]string, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out.Rows = append(out.Rows, cp)
		}
	}
	return out
}

// Values returns the raw cells of col in row order.
func (t *Table) Values(col string) []string {
	vals := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		vals = append(vals, r[col])
	}
	return vals
}

// Distinct returns the non-null values of col in first-seen order.
func (t *Table) Distinct(col string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range t.Rows {
		v := strings.TrimSpace(r[col])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Records renders the table positionally, header row first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Headers...))
	for _, r := range t.Rows {
		rec := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			rec[i] = r[h]
		}
		out = append(out, rec)
	}
	return out
}

func IsNull(v string) bool { return strings.TrimSpace(v) == "" }

// ParseNumber parses a cell as a float, accepting a comma decimal separator.
func ParseNumber(v string) (float64, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatNumber renders integral floats without a fractional part.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Sample returns a copy of t with its rows in a deterministic random order
// for seed, keeping the first n rows when n > 0.
func Sample(t *Table, n int, seed int64) *Table {
	out := t.Clone()
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out.Rows), func(i, j int) { out.Rows[i], out.Rows[j] = out.Rows[j], out.Rows[i] })
	if n > 0 && n < len(out.Rows) {
		out.Rows = out.Rows[:n]
	}
	return out
}
