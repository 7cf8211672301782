package table

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/apache/arrow/go/v18/arrow/memory"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
)

var reUFColumn = regexp.MustCompile(`(?i)^(CD_UF|CODIGO_DA_UNIDADE_DA_FEDERACAO|UF_CODIGO)$`)

// ScanFilter restricts a Parquet scan. Zero values mean no restriction.
type ScanFilter struct {
	UF    string
	Limit int
}

// Column describes one Parquet column.
type Column struct {
	Name string
	Type string
}

// ParquetSchema lists the columns of a Parquet file without reading rows.
func ParquetSchema(ctx context.Context, path string) ([]Column, error) {
	pf, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer pf.Close()
	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("arrow reader %s: %w", path, err)
	}
	schema, err := rdr.Schema()
	if err != nil {
		return nil, fmt.Errorf("parquet schema %s: %w", path, err)
	}
	cols := make([]Column, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		cols = append(cols, Column{Name: f.Name, Type: f.Type.String()})
	}
	return cols, nil
}

// LoadParquet reads every column of a Parquet file into a Table, keeping only
// rows of the requested UF when the file carries a UF code column.
func LoadParquet(ctx context.Context, path string, filter ScanFilter) (*Table, error) {
	pf, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("arrow reader %s: %w", path, err)
	}
	tbl, err := rdr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	defer tbl.Release()

	fields := tbl.Schema().Fields()
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.Name
	}

	nrows := int(tbl.NumRows())
	rows := make([]map[string]string, nrows)
	for i := range rows {
		rows[i] = make(map[string]string, len(headers))
	}
	for ci := 0; ci < int(tbl.NumCols()); ci++ {
		name := headers[ci]
		offset := 0
		for _, chunk := range tbl.Column(ci).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				if chunk.IsNull(j) {
					rows[offset+j][name] = ""
				} else {
					rows[offset+j][name] = chunk.ValueStr(j)
				}
			}
			offset += chunk.Len()
		}
	}

	out := New(headers...)
	out.Path = path
	out.Rows = rows
	return filter.Apply(out), nil
}

// Apply keeps the rows of t matching the filter. The UF restriction only
// applies when t has a UF code column.
func (f ScanFilter) Apply(t *Table) *Table {
	ufCol := ""
	for _, h := range t.Headers {
		if reUFColumn.MatchString(h) {
			ufCol = h
			break
		}
	}
	want := strings.TrimSpace(f.UF)
	out := New(t.Headers...)
	out.Path = t.Path
	for _, r := range t.Rows {
		if want != "" && ufCol != "" && strings.TrimSpace(r[ufCol]) != want {
			continue
		}
		out.Rows = append(out.Rows, r)
		if f.Limit > 0 && len(out.Rows) >= f.Limit {
			break
		}
	}
	return out
}

// Load reads a CSV or Parquet file, chosen by extension, and applies filter.
func Load(ctx context.Context, path string, filter ScanFilter) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		t, err := LoadCSV(path)
		if err != nil {
			return nil, err
		}
		return filter.Apply(t), nil
	}
	return LoadParquet(ctx, path, filter)
}

func openParquet(path string) (*pqfile.Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	pf, err := pqfile.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	return pf, nil
}
