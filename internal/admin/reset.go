// Package admin holds the operator commands around the copy itself:
// resetting the destination schema and checking destination connectivity.
package admin

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/logger"
	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/migrator"
)

// ResetSchema drops and recreates the public schema on the destination and
// re-grants the default permissions. Destructive; gated by confirm unless
// confirm is nil.
func ResetSchema(ctx context.Context, db *sql.DB, log *logger.Logger, confirm func(prompt string) bool) error {
	if confirm != nil && !confirm("This will drop ALL tables in the public schema and recreate it.") {
		return migrator.ErrCancelled
	}

	statements := []struct {
		msg  string
		stmt string
	}{
		{"dropping all tables", "DROP SCHEMA public CASCADE"},
		{"creating fresh schema", "CREATE SCHEMA public"},
		{"granting permissions", "GRANT ALL ON SCHEMA public TO postgres"},
		{"granting permissions", "GRANT ALL ON SCHEMA public TO public"},
	}
	for _, s := range statements {
		log.Info(s.msg, nil)
		if _, err := db.ExecContext(ctx, s.stmt); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}

	log.Info("database reset complete", nil)
	log.Info("next: re-run the framework's schema migrations before copying data", nil)
	return nil
}
