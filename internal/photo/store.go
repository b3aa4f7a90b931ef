// Package photo keeps uploaded ticket photos on disk, one timestamp-named
// directory per upload, below the public web root.
package photo

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// UploadsDir is the directory under the public root that holds photo
// directories. Stored paths always start with it.
const UploadsDir = "/uploads"

var ErrInvalidPath = errors.New("photo: path outside uploads")

// Photo is what gets persisted on the ticket.
type Photo struct {
	Name string
	Path string
}

type Store struct {
	fs  afero.Fs
	now func() time.Time
}

// NewStore serves and writes photos through fs, which is expected to be
// rooted at the public web directory.
func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs, now: time.Now}
}

// NewDiskStore roots the store at dir on the local filesystem.
func NewDiskStore(dir string) *Store {
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// WithClock replaces the time source used to name upload directories.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Fs() afero.Fs { return s.fs }

// SameDir reports whether two stored paths live in the same upload directory.
func SameDir(a, b string) bool {
	return path.Dir(path.Clean(a)) == path.Dir(path.Clean(b))
}

// Save writes r to /uploads/<unix millis>/<name>. Two uploads landing in the
// same millisecond share a directory.
func (s *Store) Save(name string, r io.Reader) (Photo, error) {
	base := cleanName(name)
	if base == "" {
		return Photo{}, fmt.Errorf("photo: empty file name")
	}
	dir := path.Join(UploadsDir, strconv.FormatInt(s.now().UnixMilli(), 10))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return Photo{}, fmt.Errorf("photo: mkdir %s: %w", dir, err)
	}
	p := path.Join(dir, base)
	if err := afero.WriteReader(s.fs, p, r); err != nil {
		return Photo{}, fmt.Errorf("photo: write %s: %w", p, err)
	}
	return Photo{Name: base, Path: p}, nil
}

// Remove deletes the directory holding storedPath. Empty or already removed
// paths are a no-op.
func (s *Store) Remove(storedPath string) error {
	if storedPath == "" {
		return nil
	}
	dir, err := photoDir(storedPath)
	if err != nil {
		return err
	}
	exists, err := afero.DirExists(s.fs, dir)
	if err != nil {
		return fmt.Errorf("photo: stat %s: %w", dir, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("photo: remove %s: %w", dir, err)
	}
	return nil
}

// photoDir returns the /uploads/<dir> part of a stored path and rejects
// anything that would resolve elsewhere.
func photoDir(storedPath string) (string, error) {
	clean := path.Clean("/" + strings.TrimPrefix(storedPath, "/"))
	dir := path.Dir(clean)
	if path.Dir(dir) != UploadsDir {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, storedPath)
	}
	return dir, nil
}

// cleanName drops any client-side directory components from an upload name.
func cleanName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
