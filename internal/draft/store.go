// Package draft owns the on-disk representation of an editor project ("draft"):
// a directory holding JSON documents, an INI settings file and a fixed set of
// subfolders. It loads and saves those documents and scaffolds new drafts from
// a Template.
package draft

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is a decoded JSON object. Numbers are kept as json.Number so large
// integers survive a load/save cycle untouched.
type Document map[string]any

// Store is a handle over one draft directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// CreateOptions controls Create.
type CreateOptions struct {
	Overwrite bool
	Template  *Template
	Logger    *slog.Logger

	// Now and NewID default to time.Now and an uppercase UUID.
	Now   func() time.Time
	NewID func() string
}

// Open returns a Store for an existing draft directory.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project folder %s: %w", abs, ErrNotFound)
	}
	return &Store{dir: abs, logger: orDiscard(logger)}, nil
}

// Create scaffolds a new draft in dir from a template and stamps it with a
// fresh identity.
func Create(dir string, opts CreateOptions) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid project path: %w", err)
	}
	if _, err := os.Stat(abs); err == nil && !opts.Overwrite {
		return nil, fmt.Errorf("project folder %s: %w", abs, ErrAlreadyExists)
	}

	tmpl := opts.Template
	if tmpl == nil {
		if tmpl, err = DefaultTemplate(); err != nil {
			return nil, err
		}
	}
	if err := tmpl.WriteTo(abs); err != nil {
		return nil, err
	}

	s := &Store{dir: abs, logger: orDiscard(opts.Logger)}

	newID := opts.NewID
	if newID == nil {
		newID = NewDraftID
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	draftID := newID()
	if err := s.stampMeta(draftID, now().UnixMicro()); err != nil {
		return nil, err
	}
	for _, name := range identityFiles {
		s.softPatchIdentity(name, draftID)
	}

	s.logger.Info("project created", "path", abs, "draft_id", draftID)
	return s, nil
}

// NewDraftID returns an uppercase UUID, the identifier format used throughout drafts.
func NewDraftID() string {
	return strings.ToUpper(uuid.NewString())
}

// Dir returns the absolute project directory.
func (s *Store) Dir() string {
	return s.dir
}

// Name returns the project folder name.
func (s *Store) Name() string {
	return filepath.Base(s.dir)
}

// Path returns the absolute path of a file inside the project.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether a named file exists in the project.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// Load reads a named JSON object file.
func (s *Store) Load(name string) (Document, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", name, ErrUnreadable, err)
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

// LoadInto decodes a named JSON file into v.
func (s *Store) LoadInto(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("read %s: %w: %v", name, ErrUnreadable, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w: %v", name, ErrMalformedInput, err)
	}
	return nil
}

// Save writes v as indented JSON to a named file, replacing its contents.
func (s *Store) Save(name string, v any) error {
	data, err := encodeJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w: %v", name, ErrUnwritable, err)
	}
	if err := os.WriteFile(s.Path(name), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w: %v", name, ErrUnwritable, err)
	}
	return nil
}

// ListFiles returns the sorted names of regular files directly inside the project.
func (s *Store) ListFiles() ([]string, error) {
	return s.list(false)
}

// ListFolders returns the sorted names of directories directly inside the project.
func (s *Store) ListFolders() ([]string, error) {
	return s.list(true)
}

func (s *Store) list(dirs bool) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %v", s.dir, ErrUnreadable, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() == dirs {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) stampMeta(draftID string, nowMicros int64) error {
	if !s.Exists(MetaFile) {
		s.logger.Warn("template has no meta file, identity not stamped", "file", MetaFile)
		return nil
	}
	meta, err := s.Load(MetaFile)
	if err != nil {
		return err
	}
	meta["draft_id"] = draftID
	meta["draft_name"] = s.Name()
	meta["draft_fold_path"] = s.dir
	meta["draft_root_path"] = filepath.Dir(s.dir)
	meta["tm_draft_create"] = nowMicros
	meta["tm_draft_modified"] = nowMicros
	return s.Save(MetaFile, meta)
}

// softPatchIdentity refreshes name/id/path keys already present in a file.
// Files that are missing or do not parse as a JSON object are left untouched.
func (s *Store) softPatchIdentity(name, draftID string) {
	if !s.Exists(name) {
		return
	}
	doc, err := s.Load(name)
	if err != nil {
		s.logger.Debug("skipping identity patch", "file", name, "error", err)
		return
	}
	if _, ok := doc["name"]; ok {
		doc["name"] = s.Name()
	}
	if _, ok := doc["id"]; ok {
		doc["id"] = draftID
	}
	if _, ok := doc["path"]; ok {
		doc["path"] = s.dir
	}
	if err := s.Save(name, doc); err != nil {
		s.logger.Warn("identity patch not saved", "file", name, "error", err)
	}
}

// DecodeDocument parses a JSON object, keeping numbers as json.Number.
func DecodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is not a JSON object", ErrMalformedInput)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedInput)
	}
	return doc, nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
