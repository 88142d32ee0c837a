package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reelgrab/reelgrab/internal/config"
	"github.com/reelgrab/reelgrab/internal/domain"
)

// HTTPDownloader implements Downloader using plain HTTP requests.
type HTTPDownloader struct {
	// streamClient carries no overall timeout; long transfers are bounded by
	// the request context instead.
	streamClient *http.Client
	userAgent    string
	logger       *slog.Logger
}

// NewHTTPDownloader creates a new HTTP media downloader.
func NewHTTPDownloader(cfg config.DownloadConfig) *HTTPDownloader {
	streamTransport := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &HTTPDownloader{
		streamClient: &http.Client{Transport: streamTransport},
		userAgent:    cfg.UserAgent,
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for download progress reporting.
func (d *HTTPDownloader) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// Download fetches a media URL in a single attempt. Resolved CDN links are
// signed and short-lived, so a failure wants a fresh resolution, not a retry.
func (d *HTTPDownloader) Download(ctx context.Context, url string) (io.ReadCloser, *FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,image/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.streamClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, nil, domain.ErrURLExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, nil, domain.ErrRateLimited
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, nil, domain.ErrMediaUnavailable
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size < 0 {
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			size, _ = strconv.ParseInt(cl, 10, 64)
		}
		if size < 0 {
			size = 0
		}
	}

	info := &FileInfo{
		Size:        size,
		ContentType: mediaType(resp.Header.Get("Content-Type")),
		Ext:         responseExtension(resp),
	}

	return newProgressReader(resp.Body, size, d.logger, url), info, nil
}

// mediaType strips parameters from a Content-Type header value.
func mediaType(contentType string) string {
	mediatype, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mediatype
}

// responseExtension derives a file extension for the response payload, in
// order of trust: the Content-Disposition filename, the Content-Type, the
// request URL path. Returns the extension without a dot, or empty.
func responseExtension(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if filename, ok := params["filename"]; ok {
				if ext := filepath.Ext(filename); ext != "" {
					return strings.ToLower(strings.TrimPrefix(ext, "."))
				}
			}
		}
	}

	mediatype := mediaType(resp.Header.Get("Content-Type"))
	if ext := extensionForType(mediatype); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediatype); err == nil && len(exts) > 0 {
		return strings.ToLower(strings.TrimPrefix(exts[0], "."))
	}

	if resp.Request != nil && resp.Request.URL != nil {
		if ext := filepath.Ext(resp.Request.URL.Path); ext != "" {
			return strings.ToLower(strings.TrimPrefix(ext, "."))
		}
	}

	return ""
}

// extensionForType covers the media types the platforms actually serve; the
// system mime table handles the rest.
func extensionForType(mediatype string) string {
	switch mediatype {
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	case "video/quicktime":
		return "mov"
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "audio/mp4":
		return "m4a"
	case "audio/mpeg":
		return "mp3"
	}
	return ""
}

// progressReader wraps an io.ReadCloser to log transfer progress on large
// downloads.
type progressReader struct {
	reader     io.ReadCloser
	total      int64
	downloaded int64
	lastLog    time.Time
	logger     *slog.Logger
	url        string
	mu         sync.Mutex
	closed     bool
}

func newProgressReader(r io.ReadCloser, total int64, logger *slog.Logger, url string) *progressReader {
	return &progressReader{
		reader:  r,
		total:   total,
		lastLog: time.Now(),
		logger:  logger,
		url:     url,
	}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	if n > 0 {
		p.downloaded += int64(n)
		if time.Since(p.lastLog) > 30*time.Second {
			p.logProgress()
			p.lastLog = time.Now()
		}
	}

	return n, err
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	if p.downloaded > 0 {
		p.logProgress()
	}
	p.mu.Unlock()

	return p.reader.Close()
}

func (p *progressReader) logProgress() {
	if p.total > 0 {
		pct := float64(p.downloaded) / float64(p.total) * 100
		p.logger.Debug("download progress",
			"downloaded_mb", p.downloaded/(1024*1024),
			"total_mb", p.total/(1024*1024),
			"percent", fmt.Sprintf("%.1f%%", pct),
		)
	} else {
		p.logger.Debug("download progress",
			"downloaded_mb", p.downloaded/(1024*1024),
		)
	}
}
