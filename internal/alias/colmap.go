package alias

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/hilaliskandar/sensocenso/internal/decode"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

// MapEntry is one row of the generated column map.
type MapEntry struct {
	ParquetColumn string
	ParquetType   string
	AppEquivalent string
	HumanAlias    string
	AppType       string
	CodeMap       string
}

var mapHeaders = []string{"parquet_column", "parquet_type", "app_equivalent", "human_alias", "app_type", "code_map"}

// BuildColumnMap describes how each source column is seen by the pipeline.
// AppEquivalent is empty for columns the resolver does not know.
func (r *Resolver) BuildColumnMap(cols []table.Column) []MapEntry {
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Name
	}
	mapping := r.Mapping(headers)
	out := make([]MapEntry, 0, len(cols))
	for _, c := range cols {
		e := MapEntry{ParquetColumn: c.Name, ParquetType: c.Type}
		if to, ok := mapping[c.Name]; ok {
			e.AppEquivalent = to
		} else if _, known := Synonyms[c.Name]; known || reVariable.MatchString(c.Name) {
			e.AppEquivalent = c.Name
		}
		e.HumanAlias = humanAlias(e.AppEquivalent)
		e.AppType = appType(e.AppEquivalent)
		e.CodeMap = codeMap(e.AppEquivalent)
		out = append(out, e)
	}
	return out
}

func isVariable(col string) bool {
	return strings.HasPrefix(strings.ToUpper(col), "V000") && len(col) == 5
}

func humanAlias(col string) string {
	switch {
	case col == "":
		return ""
	case isVariable(col):
		return decode.VariableLabel(col)
	case col == "SITUACAO":
		return "Situação do Setor Censitário (macro: Urbana/Rural)"
	case col == "CD_SITUACAO":
		return "Código da Situação detalhada do Setor Censitário"
	case col == "SITUACAO_DET_TXT":
		return "Situação detalhada do Setor Censitário"
	case col == "CD_TIPO":
		return "Código do Tipo do Setor Censitário"
	case col == "TP_SETOR_TXT":
		return "Tipo do Setor Censitário"
	}
	switch col {
	case "CD_SETOR", "CD_MUN", "NM_MUN", "CD_UF", "NM_UF", "RM_NOME", "AU_NOME", "NM_RGINT", "NM_RGI":
		return col
	}
	return ""
}

func appType(col string) string {
	switch {
	case col == "":
		return ""
	case col == "V0005" || col == "V0006":
		return "float64"
	case isVariable(col):
		return "numeric"
	}
	switch col {
	case "CD_SETOR", "CD_MUN", "CD_UF", "CD_SITUACAO", "CD_TIPO":
		return "categorical/int"
	}
	return ""
}

func codeMap(col string) string {
	var v any
	switch {
	case col == "CD_SITUACAO":
		v = stringKeys(decode.SituacaoDetalhada)
	case col == "CD_TIPO":
		v = stringKeys(decode.TipoSetor)
	case col != "" && isVariable(col):
		v = map[string]string{strings.ToUpper(col): decode.VariableLabel(col)}
	default:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func stringKeys(m map[int]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

// ColumnMapTable renders entries as a table ready for CSV export.
func ColumnMapTable(entries []MapEntry) *table.Table {
	t := table.New(mapHeaders...)
	for _, e := range entries {
		t.AppendRow(map[string]string{
			"parquet_column": e.ParquetColumn,
			"parquet_type":   e.ParquetType,
			"app_equivalent": e.AppEquivalent,
			"human_alias":    e.HumanAlias,
			"app_type":       e.AppType,
			"code_map":       e.CodeMap,
		})
	}
	return t
}

// WriteColumnMap writes entries as a BOM-prefixed CSV.
func WriteColumnMap(path string, entries []MapEntry) error {
	return table.WriteCSV(path, ColumnMapTable(entries), true)
}

// ReadColumnMap loads entries previously written by WriteColumnMap.
func ReadColumnMap(path string) ([]MapEntry, error) {
	t, err := table.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	if !t.HasAll("parquet_column", "app_equivalent") {
		return nil, ErrMissingMap
	}
	out := make([]MapEntry, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, MapEntry{
			ParquetColumn: r["parquet_column"],
			ParquetType:   r["parquet_type"],
			AppEquivalent: r["app_equivalent"],
			HumanAlias:    r["human_alias"],
			AppType:       r["app_type"],
			CodeMap:       r["code_map"],
		})
	}
	return out, nil
}

// Suggestion proposes a canonical field for an unmapped column.
type Suggestion struct {
	Column     string
	Canonical  string
	Similarity float64
}

// AuditReport summarizes a column map.
type AuditReport struct {
	Total       int
	Mapped      int
	Unmapped    []MapEntry
	TypeCounts  map[string]int
	Suggestions []Suggestion
}

const suggestThreshold = 0.5

// Audit counts mapped and unmapped columns and suggests the nearest canonical
// field, by header token overlap, for each unmapped one.
func Audit(entries []MapEntry) AuditReport {
	rep := AuditReport{Total: len(entries), TypeCounts: map[string]int{}}
	for _, e := range entries {
		rep.TypeCounts[e.ParquetType]++
		if strings.TrimSpace(e.AppEquivalent) != "" {
			rep.Mapped++
			continue
		}
		rep.Unmapped = append(rep.Unmapped, e)
		if s, ok := suggest(e.ParquetColumn); ok {
			rep.Suggestions = append(rep.Suggestions, s)
		}
	}
	return rep
}

func suggest(col string) (Suggestion, bool) {
	best := Suggestion{Column: col}
	for _, canon := range Canonical {
		if Normalize(col) == canon {
			return Suggestion{}, false
		}
		for _, variant := range Synonyms[canon] {
			if sim := tokenSimilarity(col, variant); sim > best.Similarity {
				best.Similarity = sim
				best.Canonical = canon
			}
		}
	}
	return best, best.Similarity >= suggestThreshold
}

// SortedTypes returns the type counts ordered by count desc then name.
func (a AuditReport) SortedTypes() []string {
	types := make([]string, 0, len(a.TypeCounts))
	for t := range a.TypeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if a.TypeCounts[types[i]] != a.TypeCounts[types[j]] {
			return a.TypeCounts[types[i]] > a.TypeCounts[types[j]]
		}
		return types[i] < types[j]
	})
	return types
}
