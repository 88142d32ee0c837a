package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reelgrab/reelgrab/internal/api/handler"
	mw "github.com/reelgrab/reelgrab/internal/api/middleware"
	"github.com/reelgrab/reelgrab/internal/config"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	downloadHandler *handler.DownloadHandler,
	filesHandler *handler.FilesHandler,
	healthHandler *handler.HealthHandler,
	rateCfg config.RateLimitConfig,
	downloadTimeout time.Duration,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS)

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/stats", healthHandler.Stats)

	// Download endpoints. The timeout is the whole transfer budget, since
	// the response is only written after the media has been spooled.
	r.Route("/download", func(r chi.Router) {
		r.Use(middleware.Timeout(downloadTimeout))
		r.Use(mw.RateLimit(rateCfg.Requests, rateCfg.Window))

		r.Post("/audio", downloadHandler.Audio)
		r.Get("/audio", downloadHandler.Audio)
		r.Post("/video", downloadHandler.Video)
		r.Get("/video", downloadHandler.Video)
		r.Post("/shorts", downloadHandler.Shorts)
		r.Get("/shorts", downloadHandler.Shorts)
		r.Post("/instagram", downloadHandler.Instagram)
		r.Get("/instagram", downloadHandler.Instagram)
	})

	// Hosted files and their index
	r.Get("/files/{filename}", filesHandler.Serve)
	r.Get("/downloads", filesHandler.List)

	return r
}
