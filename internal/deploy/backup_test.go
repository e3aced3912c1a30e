package deploy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pulsemon/provision/internal/testutil"
)

func writeDB(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DatabaseFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write database: %v", err)
	}
	return path
}

func TestBackupCopiesNotMoves(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "upgrade me")

	m := NewBackupManager(dir, testutil.NopLogger())
	if err := m.Backup(); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if !m.BackedUp() {
		t.Fatal("BackedUp() = false after successful backup")
	}

	// The original file is still in place.
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("original database missing after backup: %v", err)
	}
	// The backup holds the same bytes.
	data, err := os.ReadFile(m.BackupPath())
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "upgrade me" {
		t.Errorf("backup content = %q, want %q", data, "upgrade me")
	}
}

func TestBackupMissingDatabaseIsNoOp(t *testing.T) {
	m := NewBackupManager(t.TempDir(), testutil.NopLogger())
	if err := m.Backup(); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if m.BackedUp() {
		t.Error("BackedUp() = true with no database file")
	}
}

func TestBackupPathsAreUniquePerRun(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "v1")

	fixed := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	first := NewBackupManager(dir, testutil.NopLogger())
	first.now = func() time.Time { return fixed }
	if err := first.Backup(); err != nil {
		t.Fatalf("first Backup() error: %v", err)
	}

	// A second run in the same second must not overwrite the first
	// backup.
	writeDB(t, dir, "v2")
	second := NewBackupManager(dir, testutil.NopLogger())
	second.now = func() time.Time { return fixed }
	if err := second.Backup(); err != nil {
		t.Fatalf("second Backup() error: %v", err)
	}

	if first.BackupPath() == second.BackupPath() {
		t.Fatalf("both runs used backup path %s", first.BackupPath())
	}
	data, err := os.ReadFile(first.BackupPath())
	if err != nil {
		t.Fatalf("read first backup: %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("first backup overwritten: content = %q", data)
	}
}

func TestRestoreMovesBackupBack(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDB(t, dir, "precious rows")

	m := NewBackupManager(dir, testutil.NopLogger())
	if err := m.Backup(); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	backupPath := m.BackupPath()

	// Simulate the destructive window: the canonical file is gone.
	if err := os.Remove(dbPath); err != nil {
		t.Fatalf("remove database: %v", err)
	}

	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	// Canonical path holds the original bytes again.
	data, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("read restored database: %v", err)
	}
	if string(data) != "precious rows" {
		t.Errorf("restored content = %q, want %q", data, "precious rows")
	}
	// The backup was moved, not copied: no pending-restore file left.
	if _, err := os.Stat(backupPath); !os.IsNotExist(err) {
		t.Errorf("backup file still present after restore: %v", err)
	}
	if m.BackedUp() {
		t.Error("BackedUp() = true after restore")
	}
}

func TestRestoreWithoutBackupIsNoOp(t *testing.T) {
	m := NewBackupManager(t.TempDir(), testutil.NopLogger())
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
}

func TestRestoreVanishedBackupWarnsNotFails(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "data")

	m := NewBackupManager(dir, testutil.NopLogger())
	if err := m.Backup(); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}

	// The backup disappears between the backup and restore steps.
	if err := os.Remove(m.BackupPath()); err != nil {
		t.Fatalf("remove backup: %v", err)
	}

	if err := m.Restore(); err != nil {
		t.Errorf("Restore() error = %v, want nil (vanished backup is a warning)", err)
	}
	if m.BackedUp() {
		t.Error("BackedUp() = true after vanished-backup restore")
	}
}

func TestBackupRestoreRoundTripPreservesBytes(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("row\x00data\n", 1024)
	dbPath := writeDB(t, dir, content)

	m := NewBackupManager(dir, testutil.NopLogger())
	if err := m.Backup(); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	// Cleanup and redeploy happen here in a real run.
	if err := os.Remove(dbPath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	data, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != content {
		t.Error("restored database differs from pre-run content")
	}
}
