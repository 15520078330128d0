package catalogfile

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/apkrank/apk/internal/domain"
	"github.com/spf13/afero"
)

// Store reads and writes the local catalog copy on an afero filesystem
type Store struct {
	fs       afero.Fs
	layout   string
	location *time.Location
}

// NewStore creates a catalog store. An empty layout or nil location fall back
// to DefaultTimestampLayout and time.Local.
func NewStore(fsys afero.Fs, layout string, location *time.Location) *Store {
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	if location == nil {
		location = time.Local
	}
	return &Store{
		fs:       fsys,
		layout:   layout,
		location: location,
	}
}

// Exists reports whether a catalog file is present at path
func (s *Store) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// Load reads and decodes the catalog at path
func (s *Store) Load(path string) (*domain.CatalogSnapshot, error) {
	raw, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return s.Decode(path, raw)
}

// Decode parses raw catalog XML. path is only used in error messages.
func (s *Store) Decode(path string, raw []byte) (*domain.CatalogSnapshot, error) {
	doc, err := decodeDocument(path, raw)
	if err != nil {
		return nil, err
	}
	return mapToSnapshot(path, doc, s.layout, s.location)
}

// WriteRaw replaces the catalog at path with raw
func (s *Store) WriteRaw(path string, raw []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}

// Save writes the snapshot's metrics and annotation into the catalog file
// at path. The file must still hold the catalog the snapshot was read from.
func (s *Store) Save(path string, snapshot *domain.CatalogSnapshot) error {
	raw, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, path)
		}
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	doc, err := decodeDocument(path, raw)
	if err != nil {
		return err
	}

	current, err := mapToSnapshot(path, doc, s.layout, s.location)
	if err != nil {
		return err
	}
	if !current.CreatedAt.Equal(snapshot.CreatedAt) {
		return fmt.Errorf("catalog at %s was replaced (created %s, snapshot %s)",
			path, current.CreatedAt.Format(s.layout), snapshot.CreatedAt.Format(s.layout))
	}

	if err := applySnapshot(doc, snapshot); err != nil {
		return fmt.Errorf("cannot annotate %s: %w", path, err)
	}

	out, err := doc.marshal()
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return s.WriteRaw(path, out)
}
