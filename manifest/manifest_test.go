package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "demo"
version = "0.1.0"

[source]
dirs = ["procedures"]

[image]
output = "demo.image"
include-assembly = true

[constants]
pi = "3.14159"
e = "2.71828"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Project.Name != "demo" {
		t.Errorf("Project.Name = %q", m.Project.Name)
	}
	if m.Image.Output != "demo.image" || !m.Image.IncludeAssembly {
		t.Errorf("Image = %+v", m.Image)
	}
	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "procedures" {
		t.Errorf("Source.Dirs = %v", m.Source.Dirs)
	}
}

func TestConstantOrderFollowsFile(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "demo"

[constants]
zeta = "1"
alpha = "2"
mu = "3"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"$zeta", "$alpha", "$mu"}
	if len(m.ConstantOrder) != len(want) {
		t.Fatalf("ConstantOrder = %v, want %v", m.ConstantOrder, want)
	}
	for i := range want {
		if m.ConstantOrder[i] != want[i] {
			t.Errorf("ConstantOrder[%d] = %q, want %q", i, m.ConstantOrder[i], want[i])
		}
	}
	if value, ok := m.ConstantValue("$alpha"); !ok || value != "2" {
		t.Errorf("ConstantValue($alpha) = %q, %v", value, ok)
	}
	if _, ok := m.ConstantValue("alpha"); ok {
		t.Error("ConstantValue should require the $ prefix")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "demo"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Image.Output != "demo.image" {
		t.Errorf("default output = %q", m.Image.Output)
	}
	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "." {
		t.Errorf("default dirs = %v", m.Source.Dirs)
	}
}

func TestLoadRequiresName(t *testing.T) {
	dir := writeManifest(t, "[project]\nversion = \"1\"\n")
	if _, err := Load(dir); err == nil {
		t.Error("Load should require project.name")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load should fail without quill.toml")
	}
}

func TestSourceFiles(t *testing.T) {
	dir := writeManifest(t, "[project]\nname = \"demo\"\n")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.qasm", "sub/b.qasm", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SKIP INSTRUCTION\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	files, err := m.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles() error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("SourceFiles() = %v, want 2 entries", files)
	}
}
