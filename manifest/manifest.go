// Package manifest handles quill.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a quill.toml project configuration.
type Manifest struct {
	Project   Project           `toml:"project"`
	Source    Source            `toml:"source"`
	Image     ImageConfig       `toml:"image"`
	Constants map[string]string `toml:"constants"`

	// ConstantOrder preserves the file order of the [constants] table;
	// that order defines the constant indices in emitted bytecode.
	ConstantOrder []string `toml:"-"`

	// Dir is the directory containing the quill.toml file (set at load
	// time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures assembly source locations.
type Source struct {
	Dirs []string `toml:"dirs"`
}

// ImageConfig configures image output.
type ImageConfig struct {
	Output          string `toml:"output"`
	IncludeAssembly bool   `toml:"include-assembly"`
}

// Load parses a quill.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "quill.toml")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("manifest: no quill.toml in %s: %w", dir, err)
	}

	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	m.Dir = dir

	// The TOML decoder hands back constants as an unordered map;
	// recover the declaration order from the metadata key list.
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "constants" {
			m.ConstantOrder = append(m.ConstantOrder, "$"+key[1])
		}
	}

	if m.Project.Name == "" {
		return nil, fmt.Errorf("manifest: %s: project.name is required", path)
	}
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"."}
	}
	if m.Image.Output == "" {
		m.Image.Output = m.Project.Name + ".image"
	}
	return &m, nil
}

// SourceFiles returns the assembly files under the manifest's source
// directories, in walk order.
func (m *Manifest) SourceFiles() ([]string, error) {
	var files []string
	for _, dir := range m.Source.Dirs {
		root := filepath.Join(m.Dir, dir)
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".qasm" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("manifest: walk %s: %w", root, err)
		}
	}
	return files, nil
}

// ConstantValue returns the value bound to a `$` constant symbol.
func (m *Manifest) ConstantValue(symbol string) (string, bool) {
	if len(symbol) == 0 || symbol[0] != '$' {
		return "", false
	}
	value, ok := m.Constants[symbol[1:]]
	return value, ok
}
