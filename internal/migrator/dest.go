package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/logger"
)

// Dest writes rows into the PostgreSQL side. The schema is owned by the
// destination framework's migrations; Dest only ever inserts into tables
// that already exist.
type Dest struct {
	DB  *sql.DB
	Log *logger.Logger
}

func (d *Dest) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := d.DB.QueryRowContext(ctx, `
SELECT EXISTS (
    SELECT FROM information_schema.tables
    WHERE table_schema = 'public'
    AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("table existence check %s: %w", table, err)
	}
	return exists, nil
}

// DisableTriggers turns off all triggers on the table so derived-data
// triggers do not fire on bulk-loaded rows.
func (d *Dest) DisableTriggers(ctx context.Context, table string) error {
	_, err := d.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DISABLE TRIGGER ALL", quotePG(table)))
	return err
}

func (d *Dest) EnableTriggers(ctx context.Context, table string) error {
	_, err := d.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ENABLE TRIGGER ALL", quotePG(table)))
	return err
}

// InsertBatch inserts one batch inside a single transaction. Conflicting
// rows are dropped by ON CONFLICT DO NOTHING; any other per-row error is
// rolled back to a savepoint, logged and skipped, so one bad row cannot
// poison the rest of the batch. Returns the number of rows skipped by
// per-row errors.
func (d *Dest) InsertBatch(ctx context.Context, table string, columns []string, batch [][]any) (int64, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	cols := make([]string, len(columns))
	holders := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quotePG(c)
		holders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		quotePG(table), strings.Join(cols, ", "), strings.Join(holders, ", "))

	var skipped int64
	for _, row := range batch {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT row_insert"); err != nil {
			_ = tx.Rollback()
			return skipped, err
		}
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = convertValue(v)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT row_insert"); rbErr != nil {
				_ = tx.Rollback()
				return skipped, rbErr
			}
			skipped++
			d.Log.Warn("row insert failed, skipping", map[string]any{
				"table": table,
				"error": err.Error(),
			})
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT row_insert"); err != nil {
			_ = tx.Rollback()
			return skipped, err
		}
	}
	return skipped, tx.Commit()
}

// ResyncSequences points each primary-key sequence at max(column) so future
// inserts do not collide with copied ids. Best effort: keys without a
// backing sequence (UUIDs and the like) fail here and are ignored.
func (d *Dest) ResyncSequences(ctx context.Context, table string, primaryKeys []string) {
	for _, pk := range primaryKeys {
		query := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 1), true)`,
			quotePG(table), pk, quotePG(pk), quotePG(table))
		if _, err := d.DB.ExecContext(ctx, query); err != nil {
			d.Log.Debug("sequence resync skipped", map[string]any{
				"table":  table,
				"column": pk,
				"error":  err.Error(),
			})
			continue
		}
		d.Log.Debug("sequence resynced", map[string]any{"table": table, "column": pk})
	}
}

// convertValue maps MySQL scan values to what the Postgres driver expects.
// []byte is opportunistically decoded as text, falling back to the raw
// bytes when the payload is not valid UTF-8. Nil and time.Time pass
// through. Heuristic, not a lossless mapping.
func convertValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		if utf8.Valid(t) {
			return string(t)
		}
		return t
	case time.Time:
		return t
	default:
		return v
	}
}

func quotePG(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
