package region

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrSheetNotFound means no strategy in the chain matched a sheet.
var ErrSheetNotFound = errors.New("region sheet not found")

// Workbook is the sheet list and raw rows of a spreadsheet.
type Workbook struct {
	Sheets []string
	Rows   map[string][][]string
}

// OpenWorkbook reads every sheet of the spreadsheet at path.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	wb := &Workbook{Sheets: f.GetSheetList(), Rows: map[string][][]string{}}
	for _, s := range wb.Sheets {
		rows, err := f.GetRows(s)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", s, err)
		}
		wb.Rows[s] = rows
	}
	return wb, nil
}

// Lookups holds the RM and AU membership maps.
type Lookups struct {
	RM Lookup
	AU Lookup
}

// BuildLookups reads the RM and AU sheets of the workbook at path. A sheet
// that cannot be located yields an empty lookup.
func BuildLookups(path string, log *zap.Logger) (Lookups, error) {
	wb, err := OpenWorkbook(path)
	if err != nil {
		return Lookups{}, err
	}
	return wb.Lookups(log), nil
}

// Lookups builds both membership maps from the workbook.
func (wb *Workbook) Lookups(log *zap.Logger) Lookups {
	if log == nil {
		log = zap.NewNop()
	}
	out := Lookups{RM: Lookup{}, AU: Lookup{}}
	for _, k := range []struct {
		kind  string
		chain Chain
		dst   Lookup
	}{
		{"RM", RMSheets, out.RM},
		{"AU", AUSheets, out.AU},
	} {
		l, err := wb.sheetLookup(k.chain, log.With(zap.String("kind", k.kind)))
		if err != nil {
			log.Warn("region sheet skipped", zap.String("kind", k.kind), zap.Error(err))
			continue
		}
		for code, name := range l {
			k.dst[code] = name
		}
	}
	return out
}

func (wb *Workbook) sheetLookup(chain Chain, log *zap.Logger) (Lookup, error) {
	sheet, how, ok := chain.Resolve(wb.Sheets)
	if !ok {
		return nil, ErrSheetNotFound
	}
	log.Debug("region sheet resolved", zap.String("sheet", sheet), zap.String("strategy", how))

	rows := wb.Rows[sheet]
	if len(rows) == 0 {
		return Lookup{}, nil
	}
	header := rows[0]
	codeCol, how, ok := CodeColumns.Resolve(header)
	if !ok {
		return nil, fmt.Errorf("sheet %q: code column: %w", sheet, ErrSheetNotFound)
	}
	log.Debug("code column resolved", zap.String("column", codeCol), zap.String("strategy", how))
	nameCol, how, ok := NameColumns.Resolve(header)
	if !ok {
		return nil, fmt.Errorf("sheet %q: name column: %w", sheet, ErrSheetNotFound)
	}
	log.Debug("name column resolved", zap.String("column", nameCol), zap.String("strategy", how))
	ufCol, _, hasUF := UFColumns.Resolve(header)

	ci, ni, ui := indexOf(header, codeCol), indexOf(header, nameCol), -1
	if hasUF {
		ui = indexOf(header, ufCol)
	}

	l := Lookup{}
	for _, r := range rows[1:] {
		if ui >= 0 && !strings.EqualFold(strings.TrimSpace(cell(r, ui)), "SP") {
			continue
		}
		code := NormalizeMunicipality(cell(r, ci))
		name := strings.TrimSpace(cell(r, ni))
		if code == "" || name == "" {
			continue
		}
		if _, seen := l[code]; !seen {
			l[code] = name
		}
	}
	return l, nil
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if h == col {
			return i
		}
	}
	return -1
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}
