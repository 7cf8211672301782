package pyramid

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

// DemographicRow is one line of the age by sex table.
type DemographicRow struct {
	AgeGroup  string
	Male      int64
	Female    int64
	Total     int64
	PctMale   float64
	PctFemale float64
}

// TotalLabel names the closing row of DemographicTable.
const TotalLabel = "TOTAL"

// DemographicTable pivots l into one row per bracket with male, female and
// total counts, sex shares of the row total, and a closing TOTAL row.
// Facts whose sex is neither Masculino nor Feminino are ignored.
func DemographicTable(l Long, order []string) []DemographicRow {
	if len(order) == 0 {
		order = AgeGroups
	}
	byAge := map[string]*DemographicRow{}
	var labels []string
	for _, f := range l.Facts {
		a := NormalizeAgeLabel(f.AgeGroup)
		r, ok := byAge[a]
		if !ok {
			r = &DemographicRow{AgeGroup: a}
			byAge[a] = r
			labels = append(labels, a)
		}
		switch f.Sex {
		case Masculino:
			r.Male += f.Value
		case Feminino:
			r.Female += f.Value
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		oi, oj := ageOrder(labels[i], order), ageOrder(labels[j], order)
		if oi != oj {
			return oi < oj
		}
		return labels[i] < labels[j]
	})

	out := make([]DemographicRow, 0, len(labels)+1)
	total := DemographicRow{AgeGroup: TotalLabel}
	for _, a := range labels {
		r := *byAge[a]
		fillShares(&r)
		total.Male += r.Male
		total.Female += r.Female
		out = append(out, r)
	}
	fillShares(&total)
	return append(out, total)
}

func fillShares(r *DemographicRow) {
	r.Total = r.Male + r.Female
	if r.Total == 0 {
		return
	}
	r.PctMale = float64(r.Male) / float64(r.Total) * 100
	r.PctFemale = float64(r.Female) / float64(r.Total) * 100
}

// DemographicHeaders are the column titles of DemographicTableView.
var DemographicHeaders = []string{"Faixa Etária", "Masculino", "Feminino", "Total", "% Masculino", "% Feminino"}

// DemographicTableView formats rows with Brazilian separators.
func DemographicTableView(rows []DemographicRow) *table.Table {
	t := table.New(DemographicHeaders...)
	for _, r := range rows {
		t.AppendRow(map[string]string{
			"Faixa Etária": r.AgeGroup,
			"Masculino":    FormatBR(float64(r.Male), 0),
			"Feminino":     FormatBR(float64(r.Female), 0),
			"Total":        FormatBR(float64(r.Total), 0),
			"% Masculino":  FormatBR(r.PctMale, 2),
			"% Feminino":   FormatBR(r.PctFemale, 2),
		})
	}
	return t
}

// FormatBR formats v with "." thousands and "," decimals: 1234567.891 with
// two decimals is "1.234.567,89".
func FormatBR(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	n := len(intPart)
	var parts []string
	for n > 3 {
		parts = append([]string{intPart[n-3:]}, parts...)
		intPart = intPart[:n-3]
		n = len(intPart)
	}
	if intPart != "" {
		parts = append([]string{intPart}, parts...)
	}
	out := strings.Join(parts, ".")
	if frac != "" {
		out += "," + frac
	}
	if neg && strings.Trim(out, "0.,") != "" {
		out = "-" + out
	}
	return out
}
