package deploy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Cleanup removes the stale subpaths of a previous install while
// preserving the install directory itself and everything not listed.
// Removals are independent and best effort: a failed removal is
// warned about and the rest continue.
type Cleanup struct {
	log zerolog.Logger
}

// NewCleanup creates a new cleanup pass.
func NewCleanup(log zerolog.Logger) *Cleanup {
	return &Cleanup{log: log.With().Str("component", "cleanup").Logger()}
}

// Run removes each stale relative path under installDir. It returns
// the paths actually removed. A missing install directory means a
// fresh install and nothing happens.
func (c *Cleanup) Run(installDir string, stale []string) []string {
	if _, err := os.Stat(installDir); os.IsNotExist(err) {
		c.log.Debug().Str("dir", installDir).Msg("no previous install, skipping cleanup")
		return nil
	}

	var removed []string
	for _, rel := range stale {
		if !safeRelPath(rel) {
			c.log.Warn().Str("path", rel).Msg("refusing to remove path outside the install dir")
			continue
		}
		path := filepath.Join(installDir, rel)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("failed to remove stale path, continuing")
			continue
		}
		c.log.Info().Str("path", path).Msg("removed stale path")
		removed = append(removed, rel)
	}
	return removed
}

// safeRelPath rejects paths that resolve outside the install dir or
// to the install dir itself.
func safeRelPath(rel string) bool {
	if rel == "" || filepath.IsAbs(rel) {
		return false
	}
	clean := filepath.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
