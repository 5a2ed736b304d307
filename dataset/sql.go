package dataset

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sw965/qreplay/rl"
)

const SQLiteDriver = "sqlite3"

// QueryFrame runs query on db and reads the whole result set into a frame.
// Column order follows the result set. TEXT and BLOB cells are returned as
// string.
func QueryFrame(ctx context.Context, db *sql.DB, query string, args ...any) (rl.Frame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return rl.Frame{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return rl.Frame{}, err
	}

	frame := rl.Frame{Columns: columns}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return rl.Frame{}, err
		}
		row := make(rl.Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		frame.Rows = append(frame.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return rl.Frame{}, err
	}
	return frame, nil
}

// QuerySQLite opens the SQLite database at path read-only and runs query on it.
func QuerySQLite(ctx context.Context, path, query string, args ...any) (rl.Frame, error) {
	db, err := sql.Open(SQLiteDriver, "file:"+path+"?mode=ro")
	if err != nil {
		return rl.Frame{}, err
	}
	defer db.Close()
	return QueryFrame(ctx, db, query, args...)
}

// InsertFrame writes the rows of f into table, creating it with untyped
// columns when it does not exist yet.
func InsertFrame(ctx context.Context, db *sql.DB, table string, f rl.Frame) error {
	quoted := make([]string, len(f.Columns))
	marks := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	create := "CREATE TABLE IF NOT EXISTS " + quoteIdent(table) + " (" + strings.Join(quoted, ", ") + ")"
	if _, err := db.ExecContext(ctx, create); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoteIdent(table)+" ("+strings.Join(quoted, ", ")+") VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(f.Columns))
	for _, row := range f.Rows {
		for i, c := range f.Columns {
			args[i] = row[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
