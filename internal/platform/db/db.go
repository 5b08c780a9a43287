package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported values for DB_DRIVER.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
)

// DriverName maps a dialect onto the registered database/sql driver.
func DriverName(dialect string) (string, error) {
	switch dialect {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	case DialectMySQL:
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported database dialect %q", dialect)
}

func Open(dialect, databaseURL string) (*sql.DB, error) {
	driver, err := DriverName(dialect)
	if err != nil {
		return nil, fmt.Errorf("openDB: %w", err)
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// single writer avoids SQLITE_BUSY under concurrent cache flushes
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify %s connection: %w", dialect, err)
	}

	return db, nil
}
