package exports

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps export files on local disk under a single directory.
type Store struct {
	dir string
}

// NewStore builds a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Create opens a new uniquely named file for kind with the given extension.
// The returned path is relative to the store directory.
func (s *Store) Create(kind, ext string) (io.WriteCloser, string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("%s-%s.%s", kind, uuid.NewString(), strings.TrimPrefix(ext, "."))
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}

// Open returns a reader for a path produced by Create.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	name, err := storedName(path)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.dir, name))
}

// Remove deletes a stored file, ignoring files that are already gone.
func (s *Store) Remove(path string) error {
	name, err := storedName(path)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// storedName accepts only a bare file name inside the store directory.
func storedName(path string) (string, error) {
	clean := filepath.Base(path)
	if clean != path || clean == "." || clean == ".." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("exports: invalid path %q", path)
	}
	return clean, nil
}
