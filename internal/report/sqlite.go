package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/exportlens/exportlens/internal/frame"
	"github.com/exportlens/exportlens/internal/ingest"
)

// ExportSQLite writes the working view into a `working_view` table of a
// SQLite database file at path, creating the file and replacing any existing
// table. A one-shot export artifact, not session state.
func ExportSQLite(ctx context.Context, view *frame.Frame, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "sqlite: open")
	}
	defer db.Close() //nolint:errcheck

	cols := view.Columns()
	if len(cols) == 0 {
		return eris.New("sqlite: nothing to export")
	}

	defs := make([]string, len(cols))
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		defs[i] = quoted[i] + " " + sqliteType(col)
		marks[i] = "?"
	}

	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS working_view"); err != nil {
		return eris.Wrap(err, "sqlite: drop table")
	}
	create := fmt.Sprintf("CREATE TABLE working_view (%s)", strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return eris.Wrap(err, "sqlite: create table")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	insert := fmt.Sprintf("INSERT INTO working_view (%s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	args := make([]any, len(cols))
	for i := 0; i < view.NumRows(); i++ {
		for j, col := range cols {
			args[j] = view.Value(i, col)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %d", i)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func sqliteType(col string) string {
	switch col {
	case ingest.ColDate:
		return "DATETIME"
	case ingest.ColQuantity, ingest.ColUnitRate, ingest.ColTotalUSD:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
