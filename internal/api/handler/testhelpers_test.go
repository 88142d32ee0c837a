package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/reelgrab/reelgrab/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockVideoDownloader implements VideoDownloader.
type mockVideoDownloader struct {
	download *domain.Download
	err      error
	calls    int
	lastURL  string
	lastKind domain.MediaKind
}

func (m *mockVideoDownloader) Download(ctx context.Context, videoURL string, kind domain.MediaKind) (*domain.Download, error) {
	m.calls++
	m.lastURL = videoURL
	m.lastKind = kind
	if m.err != nil {
		return nil, m.err
	}
	return m.download, nil
}

// mockPostDownloader implements PostDownloader.
type mockPostDownloader struct {
	download *domain.Download
	err      error
	calls    int
	lastURL  string
}

func (m *mockPostDownloader) Download(ctx context.Context, postURL string) (*domain.Download, error) {
	m.calls++
	m.lastURL = postURL
	if m.err != nil {
		return nil, m.err
	}
	return m.download, nil
}

// mockRegistry implements repository.DownloadRegistry in memory.
type mockRegistry struct {
	mu       sync.Mutex
	rows     []*domain.Download
	listErr  error
	countErr error
}

func (m *mockRegistry) Insert(ctx context.Context, d *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	if m.listErr != nil {
		return nil, m.listErr
	}
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
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.rows), nil
}

func (m *mockRegistry) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

func (m *mockRegistry) Close() error { return nil }

func testDownload(id, filename string) *domain.Download {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Download{
		ID:          domain.DownloadID(id),
		Platform:    domain.PlatformYouTube,
		Kind:        domain.KindVideo,
		SourceURL:   "https://www.youtube.com/watch?v=" + id,
		Title:       "a title",
		Thumbnail:   "https://i.ytimg.example/" + id + ".jpg",
		Filename:    filename,
		Size:        1024,
		ContentType: "video/mp4",
		CreatedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
}
