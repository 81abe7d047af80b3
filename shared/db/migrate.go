package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the bind variable style of a SQL driver.
type Dialect int

const (
	// SQLite binds with '?'.
	SQLite Dialect = iota
	// Postgres binds with '$1', '$2', ...
	Postgres
)

// Rebind rewrites '?' placeholders in query for the dialect.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migration is a single versioned schema change.
// Each migration should be idempotent and safe to run multiple times.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// RunMigrations applies every migration newer than the highest recorded version, each
// in its own transaction, recording it in schema_migrations.
func RunMigrations(conn *sql.DB, dialect Dialect, migrations []Migration) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := CurrentVersion(conn)
	if err != nil {
		return err
	}

	record := dialect.Rebind("INSERT INTO schema_migrations (version, name) VALUES (?, ?)")
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(record, m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// CurrentVersion returns the highest applied migration version, or 0 for a fresh store.
func CurrentVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return version, nil
}
