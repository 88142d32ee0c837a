package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelgrab/reelgrab/internal/domain"
	"github.com/reelgrab/reelgrab/internal/repository"
)

// FilesHandler serves spooled files and lists active downloads.
type FilesHandler struct {
	store    repository.MediaStore
	registry repository.DownloadRegistry
	baseURL  string
	logger   *slog.Logger
}

// NewFilesHandler creates a new files handler.
func NewFilesHandler(
	store repository.MediaStore,
	registry repository.DownloadRegistry,
	baseURL string,
	logger *slog.Logger,
) *FilesHandler {
	return &FilesHandler{
		store:    store,
		registry: registry,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Serve handles GET /files/{filename}.
func (h *FilesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}

	// Spool filenames are generated flat names; anything that could walk
	// out of the directory is rejected outright.
	if filename == "" || strings.Contains(filename, "..") ||
		strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		h.writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	f, err := h.store.Open(filename)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			h.writeError(w, http.StatusNotFound, "File not found")
			return
		}
		h.logger.Error("open spool file failed", "filename", filename, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to open file")
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to stat file")
		return
	}

	contentType := ""
	if d, err := h.registry.GetByFilename(r.Context(), filename); err == nil {
		contentType = d.ContentType
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	// ServeContent handles Range requests and conditional headers.
	http.ServeContent(w, r, filename, stat.ModTime(), f)
}

// DownloadItem is one active download in list responses.
type DownloadItem struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title,omitempty"`
	SourceURL   string    `json:"source_url"`
	URL         string    `json:"url"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ListResponse contains the active downloads.
type ListResponse struct {
	Downloads []DownloadItem `json:"downloads"`
	Total     int            `json:"total"`
}

// List handles GET /downloads.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	rows, err := h.registry.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list downloads failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list downloads")
		return
	}

	now := time.Now()
	items := make([]DownloadItem, 0, len(rows))
	for _, d := range rows {
		// Rows the janitor has not swept yet must not resurface as live
		// links.
		if d.Expired(now) {
			continue
		}
		items = append(items, DownloadItem{
			ID:          d.ID.String(),
			Platform:    string(d.Platform),
			Kind:        string(d.Kind),
			Title:       d.Title,
			SourceURL:   d.SourceURL,
			URL:         d.PublicURL(h.baseURL),
			SizeBytes:   d.Size,
			ContentType: d.ContentType,
			CreatedAt:   d.CreatedAt,
			ExpiresAt:   d.ExpiresAt,
		})
	}

	h.writeJSON(w, http.StatusOK, ListResponse{Downloads: items, Total: len(items)})
}

func (h *FilesHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *FilesHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
