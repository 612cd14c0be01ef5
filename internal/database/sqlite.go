package database

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

// Config holds database configuration
type Config struct {
	Path string
}

// Open opens a sqlite database at path with the pragmas the ingestion
// path relies on. Callers owning their own lifecycle (tests) use this
// directly; the server uses Init/GetDB.
func Open(path string) (*sql.DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d.SetMaxOpenConns(10)
	d.SetMaxIdleConns(5)

	// WAL for concurrent ingest readers/writers
	if _, err := d.Exec("PRAGMA journal_mode=WAL"); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := d.Exec("PRAGMA foreign_keys=ON"); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := d.Exec("PRAGMA busy_timeout=5000"); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := d.Ping(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return d, nil
}

// Init initializes the process-wide database connection
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		db, err = Open(cfg.Path)
	})
	return err
}

// GetDB returns the database instance
func GetDB() *sql.DB {
	return db
}

// Close closes the database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Transaction executes a function within a database transaction
func Transaction(d *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
