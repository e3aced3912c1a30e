package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	m := Default()

	if m.App.Entry != "main.py" {
		t.Errorf("App.Entry = %q, want main.py", m.App.Entry)
	}
	if len(m.App.AssetDirs) != 2 {
		t.Fatalf("App.AssetDirs has %d entries, want 2", len(m.App.AssetDirs))
	}
	if len(m.Cleanup.Stale) != 5 {
		t.Errorf("Cleanup.Stale has %d entries, want 5", len(m.Cleanup.Stale))
	}
	if err := m.Validate(); err != nil {
		t.Errorf("default manifest failed validation: %v", err)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
app:
  entry: app.py
  asset_dirs: [static]
python:
  dependencies:
    - flask
    - requests
cleanup:
  stale:
    - app.py
    - static/css
`)
	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.App.Entry != "app.py" {
		t.Errorf("App.Entry = %q, want app.py", m.App.Entry)
	}
	if len(m.Python.Dependencies) != 2 || m.Python.Dependencies[0] != "flask" {
		t.Errorf("Python.Dependencies = %v, want [flask requests]", m.Python.Dependencies)
	}
	// Tooling falls back to pip when unset.
	if len(m.Python.Tooling) != 1 || m.Python.Tooling[0] != "pip" {
		t.Errorf("Python.Tooling = %v, want [pip]", m.Python.Tooling)
	}
}

func TestParseDependencyOrder(t *testing.T) {
	data := []byte(`
python:
  dependencies: [c, a, b]
`)
	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []string{"c", "a", "b"}
	for i, dep := range want {
		if m.Python.Dependencies[i] != dep {
			t.Errorf("Dependencies[%d] = %q, want %q (order must be preserved)", i, m.Python.Dependencies[i], dep)
		}
	}
}

func TestParseRejectsEscapingStalePath(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"absolute", "cleanup:\n  stale: [/etc/passwd]"},
		{"parent", "cleanup:\n  stale: [../outside]"},
		{"dot", "cleanup:\n  stale: [.]"},
		{"nested parent", "cleanup:\n  stale: [static/../../outside]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("Parse() accepted stale path that escapes the install dir")
			}
		})
	}
}

func TestParseRejectsAbsoluteEntry(t *testing.T) {
	if _, err := Parse([]byte("app:\n  entry: /etc/app.py")); err == nil {
		t.Error("Parse() accepted an absolute entry path")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("app: [unclosed")); err == nil {
		t.Error("Parse() accepted invalid YAML")
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.App.Entry != "main.py" {
		t.Errorf("App.Entry = %q, want default main.py", m.App.Entry)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := "app:\n  entry: server.py\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.App.Entry != "server.py" {
		t.Errorf("App.Entry = %q, want server.py", m.App.Entry)
	}
}

func TestRequiredPaths(t *testing.T) {
	m := Default()
	got := m.RequiredPaths()
	want := []string{"main.py", "static", "templates"}
	if len(got) != len(want) {
		t.Fatalf("RequiredPaths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RequiredPaths()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	m.App.Required = []string{"only.py"}
	got = m.RequiredPaths()
	if len(got) != 1 || got[0] != "only.py" {
		t.Errorf("RequiredPaths() with explicit list = %v, want [only.py]", got)
	}
}

func TestEmptyDependenciesIsValid(t *testing.T) {
	m, err := Parse([]byte("python:\n  dependencies: []\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(m.Python.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want empty", m.Python.Dependencies)
	}
}
