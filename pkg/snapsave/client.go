package snapsave

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize bounds how much of an intermediary response is read.
const maxResponseSize = 4 << 20

// Config holds the intermediary endpoint and the browser-impersonating
// request identity. Values are fixed at construction.
type Config struct {
	Endpoint  string
	Origin    string
	Referer   string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the scraping intermediary.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a new intermediary client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

// Resolution is the decoded outcome for one post URL. Links is never empty:
// a resolution either carries at least one media URL or the call fails.
type Resolution struct {
	// Links are direct media URLs in the order the decoded markup listed
	// them. The first entry is the primary asset.
	Links []string

	// SourceURL is the post URL the resolution was requested for.
	SourceURL string
}

// Resolve posts the target URL to the intermediary, decodes the obfuscated
// response, and returns the direct media links.
func (c *Client) Resolve(ctx context.Context, postURL string) (*Resolution, error) {
	form := url.Values{}
	form.Set("url", postURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", c.cfg.Origin)
	req.Header.Set("Referer", c.cfg.Referer)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	fragment, err := DecodeBody(string(body))
	if err != nil {
		return nil, err
	}

	links, err := extractLinks(fragment, c.cfg.Origin)
	if err != nil {
		return nil, err
	}

	return &Resolution{Links: links, SourceURL: postURL}, nil
}
