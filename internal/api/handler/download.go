package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reelgrab/reelgrab/internal/domain"
)

// VideoDownloader spools a video platform URL in the requested rendition.
type VideoDownloader interface {
	Download(ctx context.Context, videoURL string, kind domain.MediaKind) (*domain.Download, error)
}

// PostDownloader spools the primary asset of a social post URL.
type PostDownloader interface {
	Download(ctx context.Context, postURL string) (*domain.Download, error)
}

// DownloadHandler handles the download endpoints.
type DownloadHandler struct {
	youtube     VideoDownloader
	instagram   PostDownloader
	baseURL     string
	maxFileSize int64
	logger      *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(
	youtube VideoDownloader,
	instagram PostDownloader,
	baseURL string,
	maxFileSize int64,
	logger *slog.Logger,
) *DownloadHandler {
	return &DownloadHandler{
		youtube:     youtube,
		instagram:   instagram,
		baseURL:     baseURL,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// DownloadRequest is the JSON request body for download endpoints.
type DownloadRequest struct {
	URL string `json:"url"`
}

// DownloadResponse is the JSON response for download endpoints. Successful
// downloads carry a message and the hosted URL; failures carry error.
type DownloadResponse struct {
	Message   string `json:"message,omitempty"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Audio handles POST/GET /download/audio.
func (h *DownloadHandler) Audio(w http.ResponseWriter, r *http.Request) {
	h.downloadYouTube(w, r, domain.KindAudio, "Audio downloaded successfully.", "Video")
}

// Video handles POST/GET /download/video.
func (h *DownloadHandler) Video(w http.ResponseWriter, r *http.Request) {
	h.downloadYouTube(w, r, domain.KindVideo, "Video downloaded successfully.", "Video")
}

// Shorts handles POST/GET /download/shorts.
func (h *DownloadHandler) Shorts(w http.ResponseWriter, r *http.Request) {
	h.downloadYouTube(w, r, domain.KindShorts, "Shorts video downloaded successfully.", "Shorts video")
}

func (h *DownloadHandler) downloadYouTube(w http.ResponseWriter, r *http.Request, kind domain.MediaKind, successMsg, label string) {
	url, ok := h.requestURL(w, r)
	if !ok {
		return
	}

	d, err := h.youtube.Download(r.Context(), url, kind)
	if err != nil {
		h.respondDownloadError(w, url, label, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DownloadResponse{
		Message:   successMsg,
		Title:     d.Title,
		URL:       d.PublicURL(h.baseURL),
		Thumbnail: d.Thumbnail,
	})
}

// Instagram handles POST/GET /download/instagram.
func (h *DownloadHandler) Instagram(w http.ResponseWriter, r *http.Request) {
	url, ok := h.requestURL(w, r)
	if !ok {
		return
	}

	d, err := h.instagram.Download(r.Context(), url)
	if err != nil {
		// Exhausting every resolution path is answered like the platform
		// page would answer, not as an HTTP failure.
		if errors.Is(err, domain.ErrResolveUnavailable) {
			h.writeJSON(w, http.StatusOK, DownloadResponse{Message: "Try again later"})
			return
		}
		h.respondDownloadError(w, url, "Media", err)
		return
	}

	h.writeJSON(w, http.StatusOK, DownloadResponse{
		Message:   "Media downloaded successfully.",
		Title:     d.Title,
		URL:       d.PublicURL(h.baseURL),
		Thumbnail: d.Thumbnail,
	})
}

// requestURL pulls the target URL from the JSON body, or from the url query
// parameter on GET requests. A missing URL is answered directly.
func (h *DownloadHandler) requestURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var url string
	if r.Method == http.MethodGet {
		url = strings.TrimSpace(r.URL.Query().Get("url"))
	} else {
		var req DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body.")
			return "", false
		}
		url = strings.TrimSpace(req.URL)
	}

	if url == "" {
		h.writeError(w, http.StatusBadRequest, "Missing url parameter.")
		return "", false
	}
	return url, true
}

func (h *DownloadHandler) respondDownloadError(w http.ResponseWriter, url, label string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedURL):
		h.writeError(w, http.StatusBadRequest, "Unsupported URL: "+url)
	case errors.Is(err, domain.ErrFileTooLarge):
		h.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("File size exceeds the limit of %d MB.", h.maxFileSize/(1024*1024)))
	case errors.Is(err, domain.ErrMediaUnavailable):
		h.writeError(w, http.StatusNotFound, label+" not found or unavailable.")
	case errors.Is(err, domain.ErrURLExpired):
		h.writeError(w, http.StatusGone, "Media URL has expired. Request the download again.")
	case errors.Is(err, domain.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Rate limited by the source platform. Try again later.")
	case errors.Is(err, domain.ErrStorageFull):
		h.writeError(w, http.StatusInsufficientStorage, "Not enough storage space for this download.")
	case errors.Is(err, context.Canceled):
		// Client went away mid-download; nothing useful to write.
	default:
		h.logger.Error("download failed", "url", url, "error", err)
		h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

func (h *DownloadHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DownloadHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(DownloadResponse{Error: message})
}
