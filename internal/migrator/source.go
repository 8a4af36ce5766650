package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// systemTables are regenerated by the destination framework and never
// copied: migration history, session storage and the admin audit log.
var systemTables = map[string]bool{
	"django_migrations": true,
	"django_session":    true,
	"django_admin_log":  true,
}

// Source reads tables and rows from the MySQL side.
type Source struct {
	DB *sql.DB
}

// Tables lists base tables in the active schema, alphabetically, after
// applying the include list, the skip list and the fixed system-table set.
func (s *Source) Tables(ctx context.Context, include, exclude []string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = DATABASE()
AND table_type = 'BASE TABLE'
ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	includeSet := toSet(include)
	excludeSet := toSet(exclude)
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if len(includeSet) > 0 && !includeSet[name] {
			continue
		}
		if excludeSet[name] || systemTables[name] {
			continue
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Describe reads the column list, primary-key membership and exact row
// count for one table. Columns come back in ordinal position so batches
// stay positionally aligned with the insert statement.
func (s *Source) Describe(ctx context.Context, table string) (*TableInfo, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT COLUMN_NAME, COLUMN_KEY
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE()
AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	info := &TableInfo{Name: table}
	for rows.Next() {
		var name, key string
		if err := rows.Scan(&name, &key); err != nil {
			return nil, err
		}
		info.Columns = append(info.Columns, name)
		if key == "PRI" {
			info.PrimaryKeys = append(info.PrimaryKeys, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	count := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteMySQL(table))
	if err := s.DB.QueryRowContext(ctx, count).Scan(&info.RowCount); err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	return info, nil
}

// FetchBatch reads one page of rows. Pages are ordered by the primary key
// when the table has one; keyless tables fall back to the storage order,
// which is only safe while the source is quiescent.
func (s *Source) FetchBatch(ctx context.Context, info *TableInfo, limit, offset int) ([][]any, error) {
	cols := make([]string, len(info.Columns))
	for i, c := range info.Columns {
		cols[i] = quoteMySQL(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteMySQL(info.Name))
	if len(info.PrimaryKeys) > 0 {
		pks := make([]string, len(info.PrimaryKeys))
		for i, pk := range info.PrimaryKeys {
			pks[i] = quoteMySQL(pk)
		}
		query += " ORDER BY " + strings.Join(pks, ", ")
	}
	query += " LIMIT ? OFFSET ?"

	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch %s at offset %d: %w", info.Name, offset, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values := make([]any, len(info.Columns))
		ptrs := make([]any, len(info.Columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

func quoteMySQL(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
