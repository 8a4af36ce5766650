package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL opens the source database. It accepts either a mysql:// URL
// (the form operators keep in env files) or a native driver DSN, and makes
// sure parseTime is on so temporal columns scan as time.Time.
func OpenMySQL(dsn string) (*sql.DB, error) {
	native, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", native)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func normalizeMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql url: %w", err)
		}
		host := u.Hostname()
		if host == "" {
			host = "localhost"
		}
		port := u.Port()
		if port == "" {
			port = "3306"
		}
		user := u.User.Username()
		if user == "" {
			user = "root"
		}
		pass, _ := u.User.Password()
		name := strings.TrimPrefix(u.Path, "/")
		cred := user
		if pass != "" {
			cred += ":" + pass
		}
		dsn = fmt.Sprintf("%s@tcp(%s:%s)/%s", cred, host, port, name)
		if q := u.RawQuery; q != "" {
			dsn += "?" + q
		}
	}
	if !strings.Contains(strings.ToLower(dsn), "parsetime=") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}
	return dsn, nil
}
