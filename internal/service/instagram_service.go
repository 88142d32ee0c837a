package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reelgrab/reelgrab/internal/config"
	"github.com/reelgrab/reelgrab/internal/domain"
	"github.com/reelgrab/reelgrab/internal/downloader"
	"github.com/reelgrab/reelgrab/internal/repository"
	"github.com/reelgrab/reelgrab/pkg/snapsave"
)

// PostResolver resolves a post URL into media URLs plus post metadata.
type PostResolver interface {
	Resolve(ctx context.Context, postURL string) (*domain.Resolution, error)
}

// LinkResolver resolves a post URL into bare media links through the
// intermediary. It yields no metadata.
type LinkResolver interface {
	Resolve(ctx context.Context, postURL string) (*snapsave.Resolution, error)
}

// InstagramService turns a post URL into a locally spooled file. Resolution
// runs a two-step chain: the platform GraphQL endpoint first, the scraping
// intermediary as fallback. Facebook URLs ride the same chain; only the
// fallback can serve them.
type InstagramService struct {
	primary  PostResolver
	fallback LinkResolver
	fetcher  downloader.Downloader
	store    repository.MediaStore
	registry repository.DownloadRegistry
	cfg      config.StorageConfig
	logger   *slog.Logger
}

// NewInstagramService creates the post download orchestrator.
func NewInstagramService(
	primary PostResolver,
	fallback LinkResolver,
	fetcher downloader.Downloader,
	store repository.MediaStore,
	registry repository.DownloadRegistry,
	cfg config.StorageConfig,
	logger *slog.Logger,
) *InstagramService {
	return &InstagramService{
		primary:  primary,
		fallback: fallback,
		fetcher:  fetcher,
		store:    store,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Download resolves postURL, fetches the primary asset and spools it under a
// generated filename. The returned Download carries post metadata only when
// the primary resolution path produced it.
func (s *InstagramService) Download(ctx context.Context, postURL string) (*domain.Download, error) {
	platform, err := DetectPlatform(postURL)
	if err != nil {
		return nil, err
	}
	if platform == domain.PlatformYouTube {
		return nil, domain.ErrUnsupportedURL
	}

	res, err := s.resolve(ctx, postURL)
	if err != nil {
		return nil, err
	}

	if err := ensureDiskSpace(s.cfg.SpoolDir, s.cfg.MaxFileSize); err != nil {
		return nil, err
	}

	// The first link is the primary asset; carousels keep their extra
	// assets resolvable but only the first is re-hosted.
	content, info, err := s.fetcher.Download(ctx, res.MediaURLs[0])
	if err != nil {
		return nil, domain.NewDownloadError("", "fetch media", err)
	}
	defer content.Close()

	id := domain.DownloadID(uuid.New().String())
	filename := buildFilename(id, info.Ext, "mp4")

	written, err := s.store.Save(filename, content, s.cfg.MaxFileSize)
	if err != nil {
		return nil, domain.NewDownloadError(id, "spool media", err)
	}

	now := time.Now().UTC()
	d := &domain.Download{
		ID:          id,
		Platform:    platform,
		Kind:        domain.KindVideo,
		SourceURL:   postURL,
		Title:       res.Title,
		Thumbnail:   res.Thumbnail,
		Filename:    filename,
		Size:        written,
		ContentType: info.ContentType,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Retention),
	}

	if err := s.registry.Insert(ctx, d); err != nil {
		s.store.Remove(filename)
		return nil, fmt.Errorf("register download: %w", err)
	}

	s.logger.Info("post downloaded",
		"id", id,
		"platform", platform,
		"size_bytes", written,
		"source_url", postURL,
	)

	return d, nil
}

// resolve runs the resolution chain. Any primary failure falls through to
// the intermediary; when both paths fail the caller gets a single typed
// unavailability error and the detailed causes stay in the log.
func (s *InstagramService) resolve(ctx context.Context, postURL string) (*domain.Resolution, error) {
	res, primaryErr := s.primary.Resolve(ctx, postURL)
	if primaryErr == nil {
		return res, nil
	}
	s.logger.Warn("primary resolution failed, trying intermediary",
		"source_url", postURL,
		"error", primaryErr,
	)

	fb, fallbackErr := s.fallback.Resolve(ctx, postURL)
	if fallbackErr != nil {
		s.logger.Error("all resolution paths failed",
			"source_url", postURL,
			"primary_error", primaryErr,
			"fallback_error", fallbackErr,
		)
		return nil, domain.ErrResolveUnavailable
	}

	return &domain.Resolution{MediaURLs: fb.Links, SourceURL: postURL}, nil
}
