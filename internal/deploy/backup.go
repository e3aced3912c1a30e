// Package deploy moves the application payload into place: database
// backup and restore around destructive cleanup, selective removal of
// stale files, content copies, and launcher publishing.
package deploy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DatabaseFileName is the persisted database artifact inside the
// install directory. It survives upgrades via backup and restore.
const DatabaseFileName = "database.db"

// BackupManager preserves the database file across a destructive
// upgrade. Backup copies the file aside under a timestamped name;
// Restore moves it back after redeployment. A vanished backup at
// restore time is a warning, not an error: the run proceeds and
// manual recovery from the warned path is the fallback.
type BackupManager struct {
	installDir string
	log        zerolog.Logger
	now        func() time.Time

	backupPath string
	backedUp   bool
}

// NewBackupManager creates a backup manager for an install directory.
func NewBackupManager(installDir string, log zerolog.Logger) *BackupManager {
	return &BackupManager{
		installDir: installDir,
		log:        log.With().Str("component", "backup").Logger(),
		now:        time.Now,
	}
}

// Backup copies the database file to a timestamped backup path. A
// missing database is the fresh install steady state and records that
// there is nothing to restore. The original file stays in place; only
// the later cleanup removes anything.
func (m *BackupManager) Backup() error {
	m.backedUp = false
	m.backupPath = ""

	dbPath := filepath.Join(m.installDir, DatabaseFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		m.log.Debug().Str("path", dbPath).Msg("no database file, skipping backup")
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to check database file: %w", err)
	}

	backupPath := m.uniqueBackupPath(dbPath)
	if err := copyFile(dbPath, backupPath); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}

	m.backupPath = backupPath
	m.backedUp = true
	m.log.Info().Str("backup", backupPath).Msg("database backed up")
	return nil
}

// Restore moves the backup file back to the canonical database path.
// Without a prior backup this is a no-op. A backup that vanished
// between Backup and Restore is warned about and skipped.
func (m *BackupManager) Restore() error {
	if !m.backedUp {
		return nil
	}

	dbPath := filepath.Join(m.installDir, DatabaseFileName)
	if _, err := os.Stat(m.backupPath); os.IsNotExist(err) {
		m.log.Warn().Str("backup", m.backupPath).Msg("database backup vanished before restore, skipping")
		m.backedUp = false
		return nil
	}

	if err := os.Rename(m.backupPath, dbPath); err != nil {
		return fmt.Errorf("failed to restore database backup: %w", err)
	}

	m.log.Info().Str("path", dbPath).Msg("database restored")
	m.backedUp = false
	m.backupPath = ""
	return nil
}

// BackedUp reports whether a backup is pending restore.
func (m *BackupManager) BackedUp() bool {
	return m.backedUp
}

// BackupPath returns the current backup file path, if any.
func (m *BackupManager) BackupPath() string {
	return m.backupPath
}

// uniqueBackupPath derives a backup path that never overwrites a
// previous backup, even across repeated runs in the same second.
func (m *BackupManager) uniqueBackupPath(dbPath string) string {
	stamp := m.now().Format("20060102150405")
	candidate := fmt.Sprintf("%s.backup-%s", dbPath, stamp)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s.backup-%s-%d", dbPath, stamp, i)
	}
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}

	// Preserve executable permissions
	sourceInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	return os.Chmod(dst, sourceInfo.Mode())
}
