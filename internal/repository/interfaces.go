package repository

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/reelgrab/reelgrab/internal/domain"
)

// DownloadRegistry records one row of metadata per spooled file. Rows share
// the files' transient lifecycle and are purged together with them.
type DownloadRegistry interface {
	Insert(ctx context.Context, d *domain.Download) error
	Get(ctx context.Context, id domain.DownloadID) (*domain.Download, error)
	GetByFilename(ctx context.Context, filename string) (*domain.Download, error)
	List(ctx context.Context, limit int) ([]*domain.Download, error)
	Count(ctx context.Context) (int, error)

	// DeleteExpired removes rows whose expiry has passed and returns the
	// filenames they pointed at, so the caller can remove the files.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)

	Close() error
}

// MediaStore owns the flat spool directory holding downloaded files.
type MediaStore interface {
	// Save streams content into the spool under filename and returns the
	// byte count written. A positive maxSize aborts the save with
	// domain.ErrFileTooLarge once exceeded.
	Save(filename string, content io.Reader, maxSize int64) (int64, error)

	Open(filename string) (*os.File, error)
	Remove(filename string) error
	Path(filename string) string

	// SweepOlderThan removes spool files modified before cutoff and returns
	// the removed names.
	SweepOlderThan(cutoff time.Time) ([]string, error)
}
