package db

import (
	"database/sql"
)

// Database is a record store connection that applies its schema on Connect.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
