// Package preflight validates the environment before any installation
// step runs. A failed check is fatal and happens before the pipeline
// makes any filesystem change.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMinDiskBytes is the space required at the install target
// before the environment builder runs.
const DefaultMinDiskBytes = 200 * 1024 * 1024

// Checker runs preflight validations.
type Checker struct {
	log zerolog.Logger
}

// New creates a new preflight checker.
func New(log zerolog.Logger) *Checker {
	return &Checker{log: log.With().Str("component", "preflight").Logger()}
}

// CheckRequired verifies that every required relative path exists
// under sourceDir. All missing paths are reported in one error.
func (c *Checker) CheckRequired(sourceDir string, required []string) error {
	var missing []string
	for _, rel := range required {
		path := filepath.Join(sourceDir, rel)
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, rel)
			continue
		}
		c.log.Debug().Str("path", path).Msg("required file present")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required files missing from %s: %s", sourceDir, strings.Join(missing, ", "))
	}
	return nil
}

// CheckFolderAccessible verifies that a path exists and is a directory.
func (c *Checker) CheckFolderAccessible(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", path)
		}
		return fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

// CheckFolderWritable verifies that a directory is writable.
// This works cross-platform by attempting to create and delete a temp file.
func (c *Checker) CheckFolderWritable(path string) error {
	tempFileName := fmt.Sprintf(".pulsemon_preflight_%s", uuid.New().String()[:8])
	tempPath := filepath.Join(path, tempFileName)

	file, err := os.Create(tempPath)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("folder is read-only: %s", path)
		}
		return fmt.Errorf("cannot write to folder: %w", err)
	}

	if _, err := file.Write([]byte("preflight check")); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("cannot write data: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("cannot close file: %w", err)
	}

	if err := os.Remove(tempPath); err != nil {
		return fmt.Errorf("cannot remove test file: %w", err)
	}

	return nil
}

// CheckDiskSpace verifies that at least minBytes of space is available
// for path. When path does not exist yet, the nearest existing
// ancestor is probed instead.
func (c *Checker) CheckDiskSpace(path string, minBytes uint64) error {
	probe := nearestExisting(path)
	free, err := getFreeDiskSpace(probe)
	if err != nil {
		return fmt.Errorf("cannot determine free space for %s: %w", probe, err)
	}
	c.log.Debug().Str("path", probe).Uint64("freeBytes", free).Msg("disk space probed")
	if free < minBytes {
		return fmt.Errorf("not enough disk space at %s: %d MB free, %d MB required",
			probe, free/(1024*1024), minBytes/(1024*1024))
	}
	return nil
}

// nearestExisting walks up from path until an existing directory is
// found. The filesystem root always exists.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
