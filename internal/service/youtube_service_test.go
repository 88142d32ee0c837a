package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/reelgrab/reelgrab/internal/config"
	"github.com/reelgrab/reelgrab/internal/domain"
	"github.com/reelgrab/reelgrab/internal/repository"
	"github.com/reelgrab/reelgrab/pkg/youtube"
)

type mockStreamFetcher struct {
	media    *youtube.Media
	err      error
	calls    int
	lastURL  string
	lastKind domain.MediaKind
}

func (m *mockStreamFetcher) Fetch(ctx context.Context, videoURL string, kind domain.MediaKind) (*youtube.Media, error) {
	m.calls++
	m.lastURL = videoURL
	m.lastKind = kind
	if m.err != nil {
		return nil, m.err
	}
	return m.media, nil
}

func testMedia(body string) *youtube.Media {
	return &youtube.Media{
		ID:          "dQw4w9WgXcQ",
		Title:       "a video",
		Author:      "a channel",
		Thumbnail:   "https://i.ytimg.example/hq.jpg",
		ContentType: "video/mp4",
		Ext:         "mp4",
		Size:        int64(len(body)),
		Stream:      io.NopCloser(strings.NewReader(body)),
	}
}

func TestYouTubeService_Download(t *testing.T) {
	fetcher := &mockStreamFetcher{media: testMedia("muxed bytes")}
	registry := &mockRegistry{}
	cfg := testStorageConfig(t)
	store := repository.NewFileStore(cfg.SpoolDir)
	svc := NewYouTubeService(fetcher, store, registry, cfg, testLogger())

	d, err := svc.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", domain.KindVideo)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if fetcher.lastKind != domain.KindVideo {
		t.Errorf("fetch kind = %q, want video", fetcher.lastKind)
	}
	if d.Platform != domain.PlatformYouTube {
		t.Errorf("Platform = %q, want youtube", d.Platform)
	}
	if d.Kind != domain.KindVideo {
		t.Errorf("Kind = %q, want video", d.Kind)
	}
	if d.Title != "a video" {
		t.Errorf("Title = %q, want %q", d.Title, "a video")
	}
	if !strings.HasSuffix(d.Filename, ".mp4") {
		t.Errorf("Filename = %q, want .mp4 suffix", d.Filename)
	}
	if registry.count() != 1 {
		t.Fatalf("registry has %d rows, want 1", registry.count())
	}

	content, err := os.ReadFile(store.Path(d.Filename))
	if err != nil {
		t.Fatalf("spool file missing: %v", err)
	}
	if string(content) != "muxed bytes" {
		t.Errorf("spool content = %q, want %q", content, "muxed bytes")
	}
}

func TestYouTubeService_Download_AudioKind(t *testing.T) {
	media := testMedia("audio bytes")
	media.ContentType = "audio/mp4"
	media.Ext = "m4a"
	fetcher := &mockStreamFetcher{media: media}
	cfg := testStorageConfig(t)
	svc := NewYouTubeService(fetcher, repository.NewFileStore(cfg.SpoolDir), &mockRegistry{}, cfg, testLogger())

	d, err := svc.Download(context.Background(), "https://youtu.be/dQw4w9WgXcQ", domain.KindAudio)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if fetcher.lastKind != domain.KindAudio {
		t.Errorf("fetch kind = %q, want audio", fetcher.lastKind)
	}
	if !strings.HasSuffix(d.Filename, ".m4a") {
		t.Errorf("Filename = %q, want .m4a suffix", d.Filename)
	}
}

func TestYouTubeService_Download_UnsupportedURL(t *testing.T) {
	fetcher := &mockStreamFetcher{media: testMedia("x")}
	cfg := testStorageConfig(t)
	svc := NewYouTubeService(fetcher, repository.NewFileStore(cfg.SpoolDir), &mockRegistry{}, cfg, testLogger())

	for _, url := range []string{
		"https://www.instagram.com/reel/Cxyz123/",
		"https://example.com/watch?v=abc",
		"not a url",
	} {
		if _, err := svc.Download(context.Background(), url, domain.KindVideo); !errors.Is(err, domain.ErrUnsupportedURL) {
			t.Errorf("Download(%q) error = %v, want ErrUnsupportedURL", url, err)
		}
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called for unsupported URLs")
	}
}

func TestYouTubeService_Download_FetchFailure(t *testing.T) {
	fetcher := &mockStreamFetcher{err: errors.New("status 410 from upstream")}
	cfg := testStorageConfig(t)
	svc := NewYouTubeService(fetcher, repository.NewFileStore(cfg.SpoolDir), &mockRegistry{}, cfg, testLogger())

	_, err := svc.Download(context.Background(), "https://www.youtube.com/watch?v=gone", domain.KindVideo)
	if !errors.Is(err, domain.ErrMediaUnavailable) {
		t.Errorf("Download() error = %v, want ErrMediaUnavailable", err)
	}
}

func TestYouTubeService_Download_Oversized(t *testing.T) {
	fetcher := &mockStreamFetcher{media: testMedia(strings.Repeat("x", 64))}
	registry := &mockRegistry{}
	cfg := config.StorageConfig{SpoolDir: t.TempDir(), MaxFileSize: 16, Retention: time.Hour}
	svc := NewYouTubeService(fetcher, repository.NewFileStore(cfg.SpoolDir), registry, cfg, testLogger())

	_, err := svc.Download(context.Background(), "https://www.youtube.com/watch?v=big", domain.KindVideo)
	if !errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatalf("Download() error = %v, want ErrFileTooLarge", err)
	}
	if registry.count() != 0 {
		t.Errorf("oversized download registered anyway")
	}
}
