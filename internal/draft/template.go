package draft

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed templates/default.yaml
var defaultManifest []byte

// Template describes the folders and files materialized into a new draft.
type Template struct {
	Folders []string       `yaml:"folders"`
	Files   []TemplateFile `yaml:"files"`
}

// TemplateFile is one file of a Template. Exactly one of JSON, Text or Data
// is normally set; a file with none of them is written as an empty JSON object.
type TemplateFile struct {
	Name string  `yaml:"name"`
	JSON any     `yaml:"json,omitempty"`
	Text *string `yaml:"text,omitempty"`

	// Data holds raw bytes captured by TemplateFromDir.
	Data []byte `yaml:"-"`
}

// DefaultTemplate returns the built-in template.
func DefaultTemplate() (*Template, error) {
	return ParseTemplate(defaultManifest)
}

// LoadTemplate reads a YAML template manifest from disk.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template manifest: %w: %v", ErrUnreadable, err)
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes a YAML template manifest.
func ParseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template manifest: %w: %v", ErrMalformedInput, err)
	}
	for i, f := range t.Files {
		if f.Name == "" {
			return nil, fmt.Errorf("template file %d has no name: %w", i, ErrMalformedInput)
		}
	}
	return &t, nil
}

// TemplateFromDir snapshots an existing directory tree as a template.
func TemplateFromDir(dir string) (*Template, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("template dir %s: %w", dir, ErrNotFound)
	}

	t := &Template{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			t.Folders = append(t.Folders, rel)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		t.Files = append(t.Files, TemplateFile{Name: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot template dir: %w: %v", ErrUnreadable, err)
	}
	return t, nil
}

// Content renders the bytes written for f.
func (f TemplateFile) Content() ([]byte, error) {
	switch {
	case f.Data != nil:
		return f.Data, nil
	case f.JSON != nil:
		return encodeJSON(f.JSON)
	case f.Text != nil:
		return []byte(*f.Text), nil
	default:
		return []byte("{}\n"), nil
	}
}

// Has reports whether the template provides a file or folder with the given name.
func (t *Template) Has(name string) bool {
	for _, f := range t.Files {
		if f.Name == name {
			return true
		}
	}
	for _, d := range t.Folders {
		if d == name {
			return true
		}
	}
	return false
}

// WriteTo materializes the template under dir, overwriting files it names and
// leaving any other existing entries alone.
func (t *Template) WriteTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w: %v", dir, ErrUnwritable, err)
	}
	for _, folder := range t.Folders {
		if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(folder)), 0755); err != nil {
			return fmt.Errorf("create folder %s: %w: %v", folder, ErrUnwritable, err)
		}
	}
	for _, f := range t.Files {
		data, err := f.Content()
		if err != nil {
			return fmt.Errorf("render %s: %w", f.Name, err)
		}
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create folder for %s: %w: %v", f.Name, ErrUnwritable, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w: %v", f.Name, ErrUnwritable, err)
		}
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
