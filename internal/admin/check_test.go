package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func expectCheckQueries(mock sqlmock.Sqlmock, canCreate bool, tableCount int) {
	mock.ExpectQuery("SELECT version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).
			AddRow("PostgreSQL 16.3 on x86_64-pc-linux-gnu, compiled by gcc"))
	mock.ExpectQuery("SELECT current_database").
		WillReturnRows(sqlmock.NewRows([]string{"db"}).AddRow("app"))
	mock.ExpectQuery("SELECT current_user").
		WillReturnRows(sqlmock.NewRows([]string{"user"}).AddRow("postgres"))
	mock.ExpectQuery("has_schema_privilege").
		WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(canCreate))
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tableCount))
}

func TestCheckReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	expectCheckQueries(mock, true, 12)

	rep, err := Check(context.Background(), db, testLogger())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if rep.Version != "PostgreSQL 16.3 on x86_64-pc-linux-gnu" {
		t.Fatalf("version not trimmed: %q", rep.Version)
	}
	if rep.Database != "app" || rep.User != "postgres" || !rep.CanCreate || rep.TableCount != 12 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestCheckFailsOnQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT version").WillReturnError(errors.New("connection refused"))

	if _, err := Check(context.Background(), db, testLogger()); err == nil {
		t.Fatal("expected error")
	}
}
