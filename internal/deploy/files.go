package deploy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Deployer copies the application payload into the install directory.
// Existing files are overwritten silently; the last writer wins.
type Deployer struct {
	log zerolog.Logger
}

// NewDeployer creates a new file deployer.
func NewDeployer(log zerolog.Logger) *Deployer {
	return &Deployer{log: log.With().Str("component", "deploy").Logger()}
}

// Deploy copies the entry file and the contents of each asset
// directory from sourceDir into installDir, creating destination
// directories as needed.
func (d *Deployer) Deploy(sourceDir, installDir, entry string, assetDirs []string) error {
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return fmt.Errorf("failed to create install dir: %w", err)
	}

	src := filepath.Join(sourceDir, entry)
	dst := filepath.Join(installDir, entry)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", entry, err)
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to deploy %s: %w", entry, err)
	}
	d.log.Info().Str("file", entry).Msg("application file deployed")

	for _, dir := range assetDirs {
		srcDir := filepath.Join(sourceDir, dir)
		dstDir := filepath.Join(installDir, dir)
		if err := copyDirContents(srcDir, dstDir); err != nil {
			return fmt.Errorf("failed to deploy %s: %w", dir, err)
		}
		d.log.Info().Str("dir", dir).Msg("assets deployed")
	}
	return nil
}

// copyDirContents recursively copies the contents of srcDir into
// dstDir. The source directory itself is not recreated; its children
// land directly under dstDir.
func copyDirContents(srcDir, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	return filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(dstDir, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return copyFile(path, target)
	})
}
