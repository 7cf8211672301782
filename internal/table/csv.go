package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadCSV reads a comma separated file with a header row. Ragged rows are
// padded with null cells.
func LoadCSV(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ReadCSV(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}

func ReadCSV(r io.Reader) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	headers, err := cr.Read()
	if err != nil {
		return nil, err
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return FromRecords(headers, records), nil
}

// WriteCSV writes t to path, creating parent directories. When bom is true the
// file starts with a UTF-8 byte order mark so spreadsheet tools detect the encoding.
func WriteCSV(path string, t *Table, bom bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if bom {
		if _, err := f.Write(utf8BOM); err != nil {
			f.Close()
			return err
		}
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(t.Records()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
