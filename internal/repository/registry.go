package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/reelgrab/reelgrab/internal/domain"
)

// Registry is the sqlite-backed DownloadRegistry.
type Registry struct {
	db *sql.DB
}

// NewRegistry opens (or creates) the registry database at path and ensures
// the schema exists.
func NewRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	// sqlite allows a single writer. Serializing through one connection
	// avoids SQLITE_BUSY under concurrent downloads.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Registry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS downloads (
		id           TEXT PRIMARY KEY,
		platform     TEXT NOT NULL,
		kind         TEXT NOT NULL,
		source_url   TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		thumbnail    TEXT NOT NULL DEFAULT '',
		filename     TEXT NOT NULL,
		size_bytes   INTEGER NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		created_at   INTEGER NOT NULL,
		expires_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_expires ON downloads(expires_at);
	CREATE INDEX IF NOT EXISTS idx_downloads_filename ON downloads(filename);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create registry schema: %w", err)
	}
	return nil
}

// Insert stores a download row.
func (r *Registry) Insert(ctx context.Context, d *domain.Download) error {
	query := `
	INSERT INTO downloads (id, platform, kind, source_url, title, thumbnail,
		filename, size_bytes, content_type, created_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		string(d.ID), string(d.Platform), string(d.Kind), d.SourceURL,
		d.Title, d.Thumbnail, d.Filename, d.Size, d.ContentType,
		d.CreatedAt.Unix(), d.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// Get fetches a download by id.
func (r *Registry) Get(ctx context.Context, id domain.DownloadID) (*domain.Download, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, string(id))
	return scanDownload(row)
}

// GetByFilename fetches the download that owns a spool file.
func (r *Registry) GetByFilename(ctx context.Context, filename string) (*domain.Download, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE filename = ?`, filename)
	return scanDownload(row)
}

// List returns the most recent downloads, newest first. A non-positive
// limit returns everything.
func (r *Registry) List(ctx context.Context, limit int) ([]*domain.Download, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*domain.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}

	return downloads, nil
}

// Count returns the number of registered downloads.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloads`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count downloads: %w", err)
	}
	return count, nil
}

// DeleteExpired removes every row whose expiry is at or before now and
// returns the filenames those rows pointed at.
func (r *Registry) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT filename FROM downloads WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("select expired: %w", err)
	}

	var filenames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired: %w", err)
		}
		filenames = append(filenames, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("select expired: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM downloads WHERE expires_at <= ?`, now.Unix()); err != nil {
		return nil, fmt.Errorf("delete expired: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purge: %w", err)
	}

	return filenames, nil
}

// Close releases the database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

const selectColumns = `
	SELECT id, platform, kind, source_url, title, thumbnail,
		filename, size_bytes, content_type, created_at, expires_at
	FROM downloads`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*domain.Download, error) {
	var (
		d                  domain.Download
		id, platform, kind string
		created, expires   int64
	)
	err := row.Scan(&id, &platform, &kind, &d.SourceURL, &d.Title, &d.Thumbnail,
		&d.Filename, &d.Size, &d.ContentType, &created, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDownloadNotFound
		}
		return nil, fmt.Errorf("scan download: %w", err)
	}

	d.ID = domain.DownloadID(id)
	d.Platform = domain.Platform(platform)
	d.Kind = domain.MediaKind(kind)
	d.CreatedAt = time.Unix(created, 0).UTC()
	d.ExpiresAt = time.Unix(expires, 0).UTC()

	return &d, nil
}
