// Package storage names and writes upload and processed files on disk.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidName = errors.New("storage: invalid file name")

// Dirs holds the raw upload folder and the processed output folder.
type Dirs struct {
	Uploads   string
	Processed string
}

func New(uploads, processed string) (*Dirs, error) {
	for _, d := range []string{uploads, processed} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("storage: mkdir %s: %w", d, err)
		}
	}
	return &Dirs{Uploads: uploads, Processed: processed}, nil
}

// Saved describes a written file.
type Saved struct {
	ID   string
	Name string
	Path string
}

// SaveUpload writes the raw upload as <id><ext>, keeping the client extension.
func (d *Dirs) SaveUpload(id, filename string, b []byte) (Saved, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	return write(d.Uploads, id, ext, b)
}

// SaveProcessed writes the normalized JPEG as <id>.jpg.
func (d *Dirs) SaveProcessed(id string, b []byte) (Saved, error) {
	return write(d.Processed, id, ".jpg", b)
}

// ProcessedPath resolves a processed file name, rejecting anything that is
// not a plain file name inside the processed folder.
func (d *Dirs) ProcessedPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(d.Processed, name), nil
}

// RemoveUpload deletes a raw upload; a missing file is not an error.
func (d *Dirs) RemoveUpload(s Saved) error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func NewID() string { return uuid.New().String() }

func write(dir, id, ext string, b []byte) (Saved, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Saved{}, fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	name := id + ext
	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return Saved{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Saved{}, err
	}
	return Saved{ID: id, Name: name, Path: path}, nil
}
