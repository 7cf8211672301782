// Package store writes pipeline outputs to SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hilaliskandar/sensocenso/internal/category"
	"github.com/hilaliskandar/sensocenso/internal/pyramid"
	"github.com/hilaliskandar/sensocenso/internal/table"
)

var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// indexed are key columns that get an index when present.
var indexed = []string{"CD_SETOR", "CD_MUN", "CD_UF", "SITUACAO", "NOME_RM_AU", "NM_RGINT"}

// Open opens (and creates) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// Column is a typed output column.
type Column struct {
	Name string
	Type string // TEXT, INTEGER or REAL
}

// WriteTable drops and recreates name and inserts rows inside one
// transaction. Null cells are stored as NULL; INTEGER and REAL cells that do
// not parse are stored as NULL too.
func WriteTable(ctx context.Context, db *sql.DB, name string, cols []Column, rows []map[string]string) error {
	if !reTableName.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	var defs, quoted []string
	for _, c := range cols {
		t := c.Type
		if t == "" {
			t = "TEXT"
		}
		defs = append(defs, quoteIdent(c.Name)+" "+t)
		quoted = append(quoted, quoteIdent(c.Name))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ","))); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(name), strings.Join(quoted, ","), ph))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		args := make([]any, 0, len(cols))
		for _, c := range cols {
			args = append(args, sqliteValue(r[c.Name], c.Type))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	for _, c := range cols {
		if !isIndexed(c.Name) {
			continue
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
			quoteIdent("idx_"+name+"_"+strings.ToLower(c.Name)), quoteIdent(name), quoteIdent(c.Name))
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Columns lists the columns of a stored table in declaration order.
func Columns(ctx context.Context, db *sql.DB, name string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(name)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var cid, notnull, pk int
		var colName, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: colName, Type: ctype})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns found for table %q", name)
	}
	return cols, nil
}

func isIndexed(col string) bool {
	for _, c := range indexed {
		if c == col {
			return true
		}
	}
	return false
}

func sqliteValue(v, typ string) any {
	if table.IsNull(v) {
		return nil
	}
	switch typ {
	case "INTEGER":
		f, ok := table.ParseNumber(v)
		if !ok {
			return nil
		}
		return int64(f)
	case "REAL":
		f, ok := table.ParseNumber(v)
		if !ok {
			return nil
		}
		return f
	}
	return v
}

// WriteLong stores a long population table; valor is INTEGER.
func WriteLong(ctx context.Context, db *sql.DB, name string, l pyramid.Long) error {
	t := l.Table()
	cols := make([]Column, 0, len(t.Headers))
	for _, h := range t.Headers {
		typ := "TEXT"
		if h == pyramid.ColValue {
			typ = "INTEGER"
		}
		cols = append(cols, Column{Name: h, Type: typ})
	}
	return WriteTable(ctx, db, name, cols, t.Rows)
}

// Breakdown is one titled category group.
type Breakdown struct {
	Group string
	Facts []category.Fact
}

// WriteCategories stores breakdowns as (grupo, categoria, rotulo, valor,
// percentual) rows.
func WriteCategories(ctx context.Context, db *sql.DB, name string, breakdowns []Breakdown) error {
	cols := []Column{
		{Name: "grupo", Type: "TEXT"},
		{Name: "categoria", Type: "TEXT"},
		{Name: "rotulo", Type: "TEXT"},
		{Name: "valor", Type: "REAL"},
		{Name: "percentual", Type: "REAL"},
	}
	var rows []map[string]string
	for _, b := range breakdowns {
		for _, f := range b.Facts {
			rows = append(rows, map[string]string{
				"grupo":      b.Group,
				"categoria":  f.Category,
				"rotulo":     f.Simplified,
				"valor":      table.FormatNumber(f.Value),
				"percentual": table.FormatNumber(f.Percent),
			})
		}
	}
	return WriteTable(ctx, db, name, cols, rows)
}

// WriteStringTable stores t with every column as TEXT except those listed in
// types.
func WriteStringTable(ctx context.Context, db *sql.DB, name string, t *table.Table, types map[string]string) error {
	cols := make([]Column, 0, len(t.Headers))
	for _, h := range t.Headers {
		cols = append(cols, Column{Name: h, Type: types[h]})
	}
	return WriteTable(ctx, db, name, cols, t.Rows)
}
