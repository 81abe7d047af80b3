package postgres

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/dfryer1193/goplaces/shared/db"
	_ "github.com/lib/pq"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 10
)

type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// NewPostgresConfig uses dsn, falling back to DATABASE_URL.
func NewPostgresConfig(dsn string) *PostgresConfig {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	return &PostgresConfig{
		DSN:          dsn,
		MaxOpenConns: defaultMaxOpenConns,
		MaxIdleConns: defaultMaxIdleConns,
	}
}

// PostgresDB implements the db.Database interface for a hosted Postgres record store.
type PostgresDB struct {
	cfg *PostgresConfig
	db  *sql.DB
}

func NewPostgresDB(cfg *PostgresConfig) *PostgresDB {
	return &PostgresDB{cfg: cfg}
}

func (p *PostgresDB) Connect() error {
	if p.db != nil {
		return fmt.Errorf("database already connected")
	}
	if p.cfg.DSN == "" {
		return fmt.Errorf("postgres DSN is empty: set DATABASE_URL")
	}

	conn, err := sql.Open("postgres", p.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(p.cfg.MaxOpenConns)
	conn.SetMaxIdleConns(p.cfg.MaxIdleConns)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.RunMigrations(conn, db.Postgres, migrations); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	p.db = conn
	return nil
}

func (p *PostgresDB) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *PostgresDB) DB() *sql.DB {
	return p.db
}
