package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reelgrab/reelgrab/internal/config"
	"github.com/reelgrab/reelgrab/internal/domain"
	"github.com/reelgrab/reelgrab/internal/repository"
	"github.com/reelgrab/reelgrab/pkg/youtube"
)

// StreamFetcher opens a media stream for a video URL in the wanted rendition.
type StreamFetcher interface {
	Fetch(ctx context.Context, videoURL string, kind domain.MediaKind) (*youtube.Media, error)
}

// YouTubeService spools YouTube media. Unlike posts there is no resolution
// chain; the client talks to the platform directly and picks a format.
type YouTubeService struct {
	fetcher  StreamFetcher
	store    repository.MediaStore
	registry repository.DownloadRegistry
	cfg      config.StorageConfig
	logger   *slog.Logger
}

// NewYouTubeService creates the video download service.
func NewYouTubeService(
	fetcher StreamFetcher,
	store repository.MediaStore,
	registry repository.DownloadRegistry,
	cfg config.StorageConfig,
	logger *slog.Logger,
) *YouTubeService {
	return &YouTubeService{
		fetcher:  fetcher,
		store:    store,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Download fetches videoURL in the requested rendition and spools it under a
// generated filename.
func (s *YouTubeService) Download(ctx context.Context, videoURL string, kind domain.MediaKind) (*domain.Download, error) {
	platform, err := DetectPlatform(videoURL)
	if err != nil || platform != domain.PlatformYouTube {
		return nil, domain.ErrUnsupportedURL
	}

	if err := ensureDiskSpace(s.cfg.SpoolDir, s.cfg.MaxFileSize); err != nil {
		return nil, err
	}

	media, err := s.fetcher.Fetch(ctx, videoURL, kind)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("video fetch failed",
			"source_url", videoURL,
			"kind", kind,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
	}
	defer media.Stream.Close()

	id := domain.DownloadID(uuid.New().String())
	filename := buildFilename(id, media.Ext, "mp4")

	written, err := s.store.Save(filename, media.Stream, s.cfg.MaxFileSize)
	if err != nil {
		return nil, domain.NewDownloadError(id, "spool media", err)
	}

	now := time.Now().UTC()
	d := &domain.Download{
		ID:          id,
		Platform:    domain.PlatformYouTube,
		Kind:        kind,
		SourceURL:   videoURL,
		Title:       media.Title,
		Thumbnail:   media.Thumbnail,
		Filename:    filename,
		Size:        written,
		ContentType: media.ContentType,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Retention),
	}

	if err := s.registry.Insert(ctx, d); err != nil {
		s.store.Remove(filename)
		return nil, fmt.Errorf("register download: %w", err)
	}

	s.logger.Info("video downloaded",
		"id", id,
		"kind", kind,
		"title", media.Title,
		"size_bytes", written,
	)

	return d, nil
}
