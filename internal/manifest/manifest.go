// Package manifest parses the deploy manifest that describes an
// application payload: its entry file, asset directories, Python
// dependencies, and the stale paths cleared on upgrade.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest file looked up inside the source directory.
const FileName = "pulsemon-deploy.yaml"

// Manifest describes what the deployer copies and what the cleanup
// pass is allowed to remove from a previous install.
type Manifest struct {
	App     AppSpec     `yaml:"app"`
	Python  PythonSpec  `yaml:"python"`
	Cleanup CleanupSpec `yaml:"cleanup"`
}

// AppSpec describes the application payload inside the source dir.
type AppSpec struct {
	// Entry is the main application file, copied into the install dir
	// and exported to the migration tool as the app module.
	Entry string `yaml:"entry"`
	// AssetDirs are directories whose contents are copied into
	// same-named directories under the install dir.
	AssetDirs []string `yaml:"asset_dirs"`
	// Required lists relative paths that must exist in the source dir
	// before any step runs. Empty means Entry plus AssetDirs.
	Required []string `yaml:"required"`
}

// PythonSpec describes what gets installed into the environment.
type PythonSpec struct {
	// Dependencies are installed in order. Empty is a valid no-op.
	Dependencies []string `yaml:"dependencies"`
	// Tooling packages are upgraded unconditionally before the
	// dependency install. Empty means pip alone.
	Tooling []string `yaml:"tooling"`
}

// CleanupSpec lists the stale subpaths removed from an existing
// install before redeploy. Anything not listed is preserved.
type CleanupSpec struct {
	Stale []string `yaml:"stale"`
}

// Default returns the manifest used when the source dir carries none.
func Default() *Manifest {
	return &Manifest{
		App: AppSpec{
			Entry:     "main.py",
			AssetDirs: []string{"static", "templates"},
		},
		Python: PythonSpec{
			Dependencies: []string{
				"flask",
				"flask-sqlalchemy",
				"flask-migrate",
				"psutil",
			},
			Tooling: []string{"pip"},
		},
		Cleanup: CleanupSpec{
			Stale: []string{
				"main.py",
				"templates",
				"static/css",
				"static/js",
				"static/images",
			},
		},
	}
}

// Parse parses a deploy manifest from raw YAML.
func Parse(data []byte) (*Manifest, error) {
	m := Default()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseFile parses a deploy manifest from a file.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return Parse(data)
}

// Load returns the manifest from sourceDir, or the default manifest
// when the source dir carries none.
func Load(sourceDir string) (*Manifest, error) {
	path := filepath.Join(sourceDir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return ParseFile(path)
}

func (m *Manifest) applyDefaults() {
	if len(m.Python.Tooling) == 0 {
		m.Python.Tooling = []string{"pip"}
	}
}

// Validate rejects manifests whose cleanup list could escape the
// install dir or delete it outright.
func (m *Manifest) Validate() error {
	if m.App.Entry == "" {
		return fmt.Errorf("manifest has no app entry file")
	}
	if filepath.IsAbs(m.App.Entry) {
		return fmt.Errorf("app entry %s must be a relative path", m.App.Entry)
	}
	for _, dir := range m.App.AssetDirs {
		if err := checkRelative(dir); err != nil {
			return fmt.Errorf("asset dir %s: %w", dir, err)
		}
	}
	for _, p := range m.Cleanup.Stale {
		if err := checkRelative(p); err != nil {
			return fmt.Errorf("stale path %s: %w", p, err)
		}
	}
	return nil
}

// RequiredPaths returns the relative paths preflight must find in the
// source dir.
func (m *Manifest) RequiredPaths() []string {
	if len(m.App.Required) > 0 {
		return m.App.Required
	}
	paths := []string{m.App.Entry}
	paths = append(paths, m.App.AssetDirs...)
	return paths
}

func checkRelative(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("absolute path not allowed")
	}
	clean := filepath.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes the install dir")
	}
	return nil
}
