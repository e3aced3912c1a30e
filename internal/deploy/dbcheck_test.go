package deploy

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckDatabaseValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := conn.Exec("CREATE TABLE metrics (id INTEGER PRIMARY KEY, value REAL)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := CheckDatabase(path); err != nil {
		t.Errorf("CheckDatabase() error on valid database: %v", err)
	}
}

func TestCheckDatabaseGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := CheckDatabase(path); err == nil {
		t.Error("CheckDatabase() accepted a non-sqlite file")
	}
}
