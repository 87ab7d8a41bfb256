package db

import (
	"context"
	"embed"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	// Registered drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// Open connects to the database and applies the schema.
func Open(driver, connect string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		if err := mkdirFor(connect); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Connect(driver, connect)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s database", driver)
	}

	if driver == "sqlite3" {
		// sqlite allows a single writer, serialize access instead of
		// surfacing "database is locked".
		db.SetMaxOpenConns(1)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func mkdirFor(connect string) error {
	path := connect
	if u, err := url.Parse(connect); err == nil && u.Scheme == "file" {
		path = u.Opaque
		if path == "" {
			path = u.Path
		}
	}
	path = strings.SplitN(path, "?", 2)[0]

	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating db directory %s", dir)
		}
	}

	return nil
}

func migrate(db *sqlx.DB) error {
	b, err := fs.ReadFile(schemaFS, "schema.sql")
	if err != nil {
		return errors.Wrap(err, "reading schema")
	}

	if _, err := db.Exec(string(b)); err != nil {
		return errors.Wrap(err, "applying schema")
	}

	return nil
}

// WithTx runs cb inside a transaction, committing when it returns nil.
func WithTx(ctx context.Context, db *sqlx.DB, cb func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "creating transaction")
	}
	defer tx.Rollback()

	if err := cb(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}
