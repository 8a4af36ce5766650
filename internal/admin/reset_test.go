package admin

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/logger"
	"github.com/trivedi-vatsal/django-mysql-to-postgres/internal/migrator"
)

func testLogger() *logger.Logger {
	l := logger.New(false, false)
	l.SetOutput(io.Discard)
	return l
}

func TestResetSchemaRunsAllStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DROP SCHEMA public CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE SCHEMA public").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("GRANT ALL ON SCHEMA public TO postgres").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("GRANT ALL ON SCHEMA public TO public").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := ResetSchema(context.Background(), db, testLogger(), nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResetSchemaDeclinedIsSideEffectFree(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	confirm := func(string) bool { return false }
	if err := ResetSchema(context.Background(), db, testLogger(), confirm); !errors.Is(err, migrator.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("declined reset must execute nothing: %v", err)
	}
}

func TestResetSchemaAbortsOnStatementError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DROP SCHEMA public CASCADE").WillReturnError(errors.New("permission denied"))

	if err := ResetSchema(context.Background(), db, testLogger(), nil); err == nil {
		t.Fatal("expected error from failing statement")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
