package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/dfryer1193/goplaces/shared/db"
)

func TestNewSQLiteConfig(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		envValue string
		want     string
	}{
		{
			name:     "explicit path wins",
			path:     "/tmp/explicit.db",
			envValue: "/tmp/env.db",
			want:     "/tmp/explicit.db",
		},
		{
			name:     "env variable",
			envValue: "/tmp/env.db",
			want:     "/tmp/env.db",
		},
		{
			name: "default path",
			want: "./goplaces.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SQLITE_DB_PATH", tt.envValue)

			database := NewSQLiteDB(NewSQLiteConfig(tt.path))

			if database.dbPath != tt.want {
				t.Errorf("dbPath = %v, want %v", database.dbPath, tt.want)
			}
		})
	}
}

func TestSQLiteDB_ConnectAndClose(t *testing.T) {
	database := NewSQLiteDB(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})

	if err := database.Close(); err != nil {
		t.Errorf("Close() before Connect() error = %v", err)
	}

	if err := database.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if database.DB() == nil {
		t.Error("DB() returned nil after Connect()")
	}
	if err := database.Connect(); err == nil {
		t.Error("Connect() should return error when already connected")
	}

	if err := database.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if database.DB() != nil {
		t.Error("DB() should return nil after Close()")
	}
}

func TestSQLiteDB_InterfaceCompliance(t *testing.T) {
	var _ db.Database = (*SQLiteDB)(nil)
}
