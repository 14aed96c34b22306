// Package migrations carries the embedded schema migrations for the delivery
// store and applies them with goose. Embedding keeps the binary
// self-contained: the schema ships with the code that depends on it.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var fs embed.FS

// Up opens a database/sql connection for the DSN and applies all pending
// migrations. GORM keeps its own connection; goose only needs this one for
// the migration run.
func Up(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open db error: %w", err)
	}
	defer db.Close()

	if err = db.Ping(); err != nil {
		return fmt.Errorf("ping db error: %w", err)
	}

	if err = Apply(db); err != nil {
		return err
	}

	return nil
}

// Apply runs all pending migrations against an already-open connection.
// Used by integration tests that manage their own database lifecycle.
func Apply(db *sql.DB) error {
	goose.SetBaseFS(fs)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect error: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up error: %w", err)
	}

	return nil
}
