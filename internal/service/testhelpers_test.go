package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/reelgrab/reelgrab/internal/domain"
	"github.com/reelgrab/reelgrab/internal/downloader"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockRegistry implements repository.DownloadRegistry in memory.
type mockRegistry struct {
	mu        sync.Mutex
	rows      []*domain.Download
	insertErr error
}

func (m *mockRegistry) Insert(ctx context.Context, d *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows = append(m.rows, d)
	return nil
}

func (m *mockRegistry) Get(ctx context.Context, id domain.DownloadID) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, domain.ErrDownloadNotFound
}

func (m *mockRegistry) GetByFilename(ctx context.Context, filename string) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if d.Filename == filename {
			return d, nil
		}
	}
	return nil, domain.ErrDownloadNotFound
}

func (m *mockRegistry) List(ctx context.Context, limit int) ([]*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]*domain.Download, len(m.rows))
	copy(rows, m.rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *mockRegistry) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *mockRegistry) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.Download
	var removed []string
	for _, d := range m.rows {
		if d.ExpiresAt.After(now) {
			kept = append(kept, d)
			continue
		}
		removed = append(removed, d.Filename)
	}
	m.rows = kept
	return removed, nil
}

func (m *mockRegistry) Close() error { return nil }

func (m *mockRegistry) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *mockRegistry) first() *domain.Download {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil
	}
	return m.rows[0]
}

// mockFetcher implements downloader.Downloader with a canned body.
type mockFetcher struct {
	body    string
	info    downloader.FileInfo
	err     error
	calls   int
	lastURL string
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, *downloader.FileInfo, error) {
	m.calls++
	m.lastURL = url
	if m.err != nil {
		return nil, nil, m.err
	}
	info := m.info
	if info.Size == 0 {
		info.Size = int64(len(m.body))
	}
	return io.NopCloser(strings.NewReader(m.body)), &info, nil
}
