package admin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/logger"
)

// CheckReport is the result of a destination connectivity check.
type CheckReport struct {
	Version    string
	Database   string
	User       string
	CanCreate  bool
	TableCount int
}

// Check verifies that the destination is reachable and that the connected
// role can create tables in the public schema. Read-only.
func Check(ctx context.Context, db *sql.DB, log *logger.Logger) (*CheckReport, error) {
	rep := &CheckReport{}

	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return nil, fmt.Errorf("query server version: %w", err)
	}
	rep.Version = strings.TrimSpace(strings.SplitN(version, ",", 2)[0])

	if err := db.QueryRowContext(ctx, "SELECT current_database()").Scan(&rep.Database); err != nil {
		return nil, fmt.Errorf("query current database: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT current_user").Scan(&rep.User); err != nil {
		return nil, fmt.Errorf("query current user: %w", err)
	}
	if err := db.QueryRowContext(ctx,
		"SELECT has_schema_privilege(current_user, 'public', 'CREATE')").Scan(&rep.CanCreate); err != nil {
		return nil, fmt.Errorf("query schema privilege: %w", err)
	}
	if err := db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = 'public'`).Scan(&rep.TableCount); err != nil {
		return nil, fmt.Errorf("count tables: %w", err)
	}

	log.Info("connected to postgres", map[string]any{
		"version":  rep.Version,
		"database": rep.Database,
		"user":     rep.User,
	})
	if rep.CanCreate {
		log.Info("role can create tables in public schema", nil)
	} else {
		log.Warn("role cannot create tables in public schema; grant CREATE before migrating", nil)
	}
	if rep.TableCount == 0 {
		log.Info("fresh database, ready for schema migrations", map[string]any{"tables": 0})
	} else {
		log.Info("database has existing tables", map[string]any{"tables": rep.TableCount})
	}
	return rep, nil
}
