package repository

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reelgrab/reelgrab/internal/domain"
)

// partialSuffix marks files still being written. Partials are never served
// and get removed by the sweep like everything else.
const partialSuffix = ".partial"

// FileStore implements MediaStore on a flat spool directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created
// lazily on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the location of a spool file.
func (s *FileStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Save streams content into the spool under filename. The write goes to a
// partial file first and is renamed into place only when complete, so a
// failed download never leaves a servable file behind.
func (s *FileStore) Save(filename string, content io.Reader, maxSize int64) (int64, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return 0, fmt.Errorf("create spool directory: %w", err)
	}

	partial := s.Path(filename) + partialSuffix
	f, err := os.Create(partial)
	if err != nil {
		return 0, fmt.Errorf("create partial file: %w", err)
	}

	var written int64
	if maxSize > 0 {
		written, err = io.Copy(f, io.LimitReader(content, maxSize+1))
		if err == nil && written > maxSize {
			err = fmt.Errorf("%w: exceeds %d bytes", domain.ErrFileTooLarge, maxSize)
		}
	} else {
		written, err = io.Copy(f, content)
	}
	f.Close()
	if err != nil {
		os.Remove(partial)
		if errors.Is(err, domain.ErrFileTooLarge) {
			return 0, err
		}
		return 0, fmt.Errorf("write media: %w", err)
	}

	if err := os.Rename(partial, s.Path(filename)); err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("move into spool: %w", err)
	}

	return written, nil
}

// Open opens a spool file for serving.
func (s *FileStore) Open(filename string) (*os.File, error) {
	if strings.HasSuffix(filename, partialSuffix) {
		return nil, domain.ErrFileNotFound
	}

	f, err := os.Open(s.Path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("open media: %w", err)
	}
	return f, nil
}

// Remove deletes a spool file. A missing file is not an error.
func (s *FileStore) Remove(filename string) error {
	if err := os.Remove(s.Path(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media: %w", err)
	}
	return nil
}

// SweepOlderThan removes every regular spool file modified before cutoff,
// partials included, and returns the removed names. Removal is best-effort:
// a file that cannot be removed is left for the next sweep.
func (s *FileStore) SweepOlderThan(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read spool directory: %w", err)
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(s.Path(entry.Name())); err != nil {
			continue
		}
		removed = append(removed, entry.Name())
	}

	return removed, nil
}
