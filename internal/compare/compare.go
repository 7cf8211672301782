// Package compare aligns two output tables on key columns and scores how
// closely their shared columns agree. It is used to check a pipeline run
// against a previous one.
package compare

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

const (
	StatusOK      = "ok"
	StatusPartial = "partial_key_match"
)

type Config struct {
	ReferenceCSV string   `json:"reference_csv"`
	CandidateCSV string   `json:"candidate_csv"`
	Keys         []string `json:"keys"`
	Tolerance    float64  `json:"tolerance"`
}

type RowAlignment struct {
	Complete                  bool    `json:"complete"`
	MatchedRows               int     `json:"matched_rows"`
	ReferenceRows             int     `json:"reference_rows"`
	CandidateRows             int     `json:"candidate_rows"`
	CoverageReference         float64 `json:"coverage_reference"`
	CoverageCandidate         float64 `json:"coverage_candidate"`
	DuplicateReferenceKeys    int     `json:"duplicate_reference_keys,omitempty"`
	DuplicateCandidateMatches int     `json:"duplicate_candidate_matches,omitempty"`
	UnmatchedCandidateRows    int     `json:"unmatched_candidate_rows,omitempty"`

	pairs [][2]int
}

// ColumnScore is the agreement of one shared column over the aligned rows.
type ColumnScore struct {
	Column     string  `json:"column"`
	Similarity float64 `json:"similarity"`
	// Mismatches counts aligned rows whose values differ beyond the tolerance.
	Mismatches int     `json:"mismatches"`
	MaxAbsDiff float64 `json:"max_abs_diff,omitempty"`
}

type Report struct {
	Status       string        `json:"status"`
	Identical    bool          `json:"identical"`
	Config       Config        `json:"config"`
	RowAlignment RowAlignment  `json:"row_alignment"`
	Columns      []ColumnScore `json:"columns"`
	// Similarity is the equal-weighted mean of the column similarities.
	Similarity float64 `json:"similarity"`
	// OverallScore is Similarity scaled by the reference coverage.
	OverallScore  float64  `json:"overall_score"`
	ReferenceOnly []string `json:"reference_only_columns,omitempty"`
	CandidateOnly []string `json:"candidate_only_columns,omitempty"`
}

// Files loads two CSV files and compares them.
func Files(reference, candidate string, keys []string, tolerance float64) (Report, error) {
	ref, err := table.LoadCSV(reference)
	if err != nil {
		return Report{}, err
	}
	cand, err := table.LoadCSV(candidate)
	if err != nil {
		return Report{}, err
	}
	return Tables(ref, cand, keys, tolerance)
}

// Tables aligns cand to ref on keys and scores the other shared columns.
// Numeric cells within tolerance of each other count as equal.
func Tables(ref, cand *table.Table, keys []string, tolerance float64) (Report, error) {
	if len(keys) == 0 {
		return Report{}, fmt.Errorf("compare: no key columns")
	}
	for _, k := range keys {
		if !ref.Has(k) || !cand.Has(k) {
			return Report{}, fmt.Errorf("compare key %q: %w", k, table.ErrMissingColumn)
		}
	}
	rep := Report{Config: Config{ReferenceCSV: ref.Path, CandidateCSV: cand.Path, Keys: keys, Tolerance: tolerance}}
	rep.RowAlignment = alignRows(ref, cand, keys)

	isKey := map[string]bool{}
	for _, k := range keys {
		isKey[k] = true
	}
	var shared []string
	for _, h := range ref.Headers {
		switch {
		case isKey[h]:
		case cand.Has(h):
			shared = append(shared, h)
		default:
			rep.ReferenceOnly = append(rep.ReferenceOnly, h)
		}
	}
	for _, h := range cand.Headers {
		if !isKey[h] && !ref.Has(h) {
			rep.CandidateOnly = append(rep.CandidateOnly, h)
		}
	}

	var sum float64
	for _, col := range shared {
		cs := scoreColumn(ref, cand, rep.RowAlignment.pairs, col, tolerance)
		rep.Columns = append(rep.Columns, cs)
		sum += cs.Similarity
	}
	if len(rep.Columns) > 0 {
		rep.Similarity = round6(sum / float64(len(rep.Columns)))
	} else if rep.RowAlignment.MatchedRows > 0 {
		rep.Similarity = 1
	}
	rep.OverallScore = round6(rep.Similarity * rep.RowAlignment.CoverageReference)

	rep.Status = StatusPartial
	if rep.RowAlignment.Complete {
		rep.Status = StatusOK
	}
	rep.Identical = rep.RowAlignment.Complete && len(rep.ReferenceOnly) == 0 && len(rep.CandidateOnly) == 0
	for _, c := range rep.Columns {
		if c.Mismatches > 0 {
			rep.Identical = false
		}
	}
	return rep, nil
}

func compositeKey(row map[string]string, keys []string) string {
	parts := make([]string, len(keys))
	empty := true
	for i, k := range keys {
		parts[i] = canonicalScalar(row[k])
		if parts[i] != "" {
			empty = false
		}
	}
	if empty {
		return ""
	}
	return strings.Join(parts, "\x00")
}

func alignRows(ref, cand *table.Table, keys []string) RowAlignment {
	refIndex := make(map[string]int, len(ref.Rows))
	dupRef := 0
	for i, row := range ref.Rows {
		k := compositeKey(row, keys)
		if k == "" {
			continue
		}
		if _, exists := refIndex[k]; exists {
			dupRef++
			continue
		}
		refIndex[k] = i
	}
	pairs := make([][2]int, 0, len(cand.Rows))
	seenRef := make(map[int]struct{}, len(cand.Rows))
	missing, dupCand := 0, 0
	for ci, row := range cand.Rows {
		k := compositeKey(row, keys)
		ri, ok := refIndex[k]
		if k == "" || !ok {
			missing++
			continue
		}
		if _, exists := seenRef[ri]; exists {
			dupCand++
			continue
		}
		seenRef[ri] = struct{}{}
		pairs = append(pairs, [2]int{ri, ci})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	matched := len(pairs)
	return RowAlignment{
		Complete:                  dupRef == 0 && dupCand == 0 && missing == 0 && matched == len(ref.Rows) && matched == len(cand.Rows),
		MatchedRows:               matched,
		ReferenceRows:             len(ref.Rows),
		CandidateRows:             len(cand.Rows),
		CoverageReference:         safeDiv(float64(matched), float64(len(ref.Rows))),
		CoverageCandidate:         safeDiv(float64(matched), float64(len(cand.Rows))),
		DuplicateReferenceKeys:    dupRef,
		DuplicateCandidateMatches: dupCand,
		UnmatchedCandidateRows:    missing,
		pairs:                     pairs,
	}
}

func scoreColumn(ref, cand *table.Table, pairs [][2]int, col string, tolerance float64) ColumnScore {
	cs := ColumnScore{Column: col}
	if len(pairs) == 0 {
		return cs
	}
	var sum float64
	for _, p := range pairs {
		a, b := ref.Rows[p[0]][col], cand.Rows[p[1]][col]
		sum += valueSimilarity(a, b, tolerance)
		af, aok := table.ParseNumber(a)
		bf, bok := table.ParseNumber(b)
		switch {
		case aok && bok:
			d := math.Abs(af - bf)
			cs.MaxAbsDiff = math.Max(cs.MaxAbsDiff, d)
			if d > tolerance {
				cs.Mismatches++
			}
		case canonicalScalar(a) != canonicalScalar(b):
			cs.Mismatches++
		}
	}
	cs.Similarity = round6(sum / float64(len(pairs)))
	return cs
}

// valueSimilarity is 1 for equal cells, a relative closeness for numbers and
// a normalized edit distance for text.
func valueSimilarity(a, b string, tolerance float64) float64 {
	an, bn := strings.TrimSpace(a), strings.TrimSpace(b)
	if an == "" && bn == "" {
		return 1
	}
	if an == "" || bn == "" {
		return 0
	}
	if an == bn {
		return 1
	}
	if af, ok := table.ParseNumber(an); ok {
		if bf, ok := table.ParseNumber(bn); ok {
			d := math.Abs(af - bf)
			if d <= tolerance {
				return 1
			}
			denom := math.Max(math.Max(math.Abs(af), math.Abs(bf)), 1)
			return math.Max(0, 1-d/denom)
		}
	}
	return levenshteinSimilarity(an, bn)
}

func levenshteinSimilarity(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	denom := max(len(ar), len(br))
	if denom == 0 {
		return 1
	}
	return math.Max(0, 1-float64(levenshtein(ar, br))/float64(denom))
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// canonicalScalar folds numerically equal cells ("7", "7.0", "7,0") onto one
// spelling so they align as keys.
func canonicalScalar(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	if f, ok := table.ParseNumber(s); ok {
		return table.FormatNumber(f)
	}
	return s
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
