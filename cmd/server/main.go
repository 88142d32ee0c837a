package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelgrab/reelgrab/internal/api"
	"github.com/reelgrab/reelgrab/internal/api/handler"
	"github.com/reelgrab/reelgrab/internal/config"
	"github.com/reelgrab/reelgrab/internal/downloader"
	"github.com/reelgrab/reelgrab/internal/repository"
	"github.com/reelgrab/reelgrab/internal/service"
	"github.com/reelgrab/reelgrab/internal/worker"
	"github.com/reelgrab/reelgrab/pkg/instagram"
	"github.com/reelgrab/reelgrab/pkg/snapsave"
	"github.com/reelgrab/reelgrab/pkg/youtube"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("reelgrab %s (built %s)\n", Version, BuildTime)
		return
	}

	// Local development keeps tokens in a .env file. Absence is fine.
	_ = godotenv.Load(".env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting reelgrab",
		"version", Version,
		"build_time", BuildTime,
		"addr", cfg.Server.Address(),
	)

	if err := os.MkdirAll(cfg.Storage.SpoolDir, 0755); err != nil {
		logger.Error("failed to create spool directory", "dir", cfg.Storage.SpoolDir, "error", err)
		os.Exit(1)
	}
	if dir := filepath.Dir(cfg.Storage.RegistryPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create registry directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	registry, err := repository.NewRegistry(cfg.Storage.RegistryPath)
	if err != nil {
		logger.Error("failed to open registry", "path", cfg.Storage.RegistryPath, "error", err)
		os.Exit(1)
	}
	store := repository.NewFileStore(cfg.Storage.SpoolDir)

	fetcher := downloader.NewHTTPDownloader(cfg.Download)
	fetcher.SetLogger(logger)

	graphql := instagram.NewClient(instagram.Config{
		Endpoint:  cfg.Instagram.Endpoint,
		DocID:     cfg.Instagram.DocID,
		AppID:     cfg.Instagram.AppID,
		LSD:       cfg.Instagram.LSD,
		CSRFToken: cfg.Instagram.CSRFToken,
		ASBDID:    cfg.Instagram.ASBDID,
		UserAgent: cfg.Instagram.UserAgent,
		Timeout:   cfg.Instagram.Timeout,
	})
	intermediary := snapsave.NewClient(snapsave.Config{
		Endpoint:  cfg.Snapsave.Endpoint,
		Origin:    cfg.Snapsave.Origin,
		Referer:   cfg.Snapsave.Referer,
		UserAgent: cfg.Snapsave.UserAgent,
		Timeout:   cfg.Snapsave.Timeout,
	})
	streams := youtube.NewClient(nil)

	instagramSvc := service.NewInstagramService(graphql, intermediary, fetcher, store, registry, cfg.Storage, logger)
	youtubeSvc := service.NewYouTubeService(streams, store, registry, cfg.Storage, logger)

	downloadHandler := handler.NewDownloadHandler(youtubeSvc, instagramSvc, cfg.Server.BaseURL, cfg.Storage.MaxFileSize, logger)
	filesHandler := handler.NewFilesHandler(store, registry, cfg.Server.BaseURL, logger)
	healthHandler := handler.NewHealthHandler(registry, cfg.Storage.SpoolDir)

	router := api.NewRouter(downloadHandler, filesHandler, healthHandler, cfg.RateLimit, cfg.Download.Timeout)

	janitor := worker.NewJanitor(worker.Config{
		Interval:  cfg.Storage.SweepInterval,
		Retention: cfg.Storage.Retention,
	}, registry, store, logger)
	janitor.Start()

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := janitor.Stop(25 * time.Second); err != nil {
		logger.Warn("janitor did not stop cleanly", "error", err)
	}
	if err := registry.Close(); err != nil {
		logger.Warn("registry close failed", "error", err)
	}

	logger.Info("shutdown complete")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
