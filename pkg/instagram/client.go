// Package instagram fetches post metadata and direct media URLs from
// Instagram's public web GraphQL endpoint. The endpoint answers unauthenticated
// POST requests as long as the request carries the session-shaped form fields
// and headers of the web client; those values rot over time, so the
// interesting ones are configurable.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/reelgrab/reelgrab/internal/domain"
)

var (
	// ErrNoShortcode is returned when no post shortcode can be parsed from a URL.
	ErrNoShortcode = errors.New("no shortcode in URL")

	// ErrNoMedia is returned when the GraphQL response carries no media node,
	// which covers deleted, private and age-gated posts.
	ErrNoMedia = errors.New("no media data found")
)

var shortcodePattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?instagram\.com/(?:p|tv|stories|reel)/([^/?#&]+)`)

// ExtractShortcode pulls the post shortcode out of an Instagram post, reel,
// tv or stories URL. It returns the empty string when the URL does not name
// a post.
func ExtractShortcode(postURL string) string {
	m := shortcodePattern.FindStringSubmatch(postURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Default request identity, captured from a live web client session.
const (
	defaultEndpoint     = "https://www.instagram.com/api/graphql"
	defaultDocID        = "10015901848480474"
	defaultAppID        = "1217981644879628"
	defaultLSD          = "AVqbxe3J_YA"
	defaultCSRFToken    = "RVDUooU5MYsBbS1CNN3CzVAuEP8oHB52"
	defaultASBDID       = "129477"
	defaultFriendlyName = "PolarisPostActionLoadPostQueryQuery"
	defaultUserAgent    = "Mozilla/5.0 (Linux; Android 11; SAMSUNG SM-G973U) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/14.2 Chrome/87.0.4280.141 Mobile Safari/537.36"
)

// Session boilerplate the web client sends alongside every query. The values
// are opaque and only need to look plausible to the endpoint.
const (
	formHS    = "19624.HYP:instagram_web_pkg.2.1..0.0"
	formRev   = "1008824440"
	formS     = "xf44ne:zhh75g:xr51e7"
	formHSI   = "7282217488877343271"
	formDyn   = "7xeUmwlEnwn8K2WnFw9-2i5U4e0yoW3q32360CEbo1nEhw2nVE4W0om78b87C0yE5ufz81s8hwGwQwoEcE7O2l0Fwqo31w9a9x-0z8-U2zxe2GewGwso88cobEaU2eUlwhEe87q7-0iK2S3qazo7u1xwIw8O321LwTwKG1pg661pwr86C1mwraCg"
	formCSR   = "gZ3yFmJkillQvV6ybimnG8AmhqujGbLADgjyEOWz49z9XDlAXBJpC7Wy-vQTSvUGWGh5u8KibG44dBiigrgjDxGjU0150Q0848azk48N09C02IR0go4SaR70r8owyg9pU0V23hwiA0LQczA48S0f-x-27o05NG0fkw"
	formJazo  = "2957"
	formSpinT = "1695523385"
)

// Config holds the GraphQL endpoint and the session tokens sent with each
// request. Zero fields fall back to the captured defaults.
type Config struct {
	Endpoint     string
	DocID        string
	AppID        string
	LSD          string
	CSRFToken    string
	ASBDID       string
	FriendlyName string
	UserAgent    string
	Timeout      time.Duration
}

// Client fetches post data from Instagram.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a new Instagram GraphQL client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.DocID == "" {
		cfg.DocID = defaultDocID
	}
	if cfg.AppID == "" {
		cfg.AppID = defaultAppID
	}
	if cfg.LSD == "" {
		cfg.LSD = defaultLSD
	}
	if cfg.CSRFToken == "" {
		cfg.CSRFToken = defaultCSRFToken
	}
	if cfg.ASBDID == "" {
		cfg.ASBDID = defaultASBDID
	}
	if cfg.FriendlyName == "" {
		cfg.FriendlyName = defaultFriendlyName
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

// queryVariables is the GraphQL variables object for the post query. Field
// order mirrors the web client; the null fields must still be present.
type queryVariables struct {
	Shortcode                     string `json:"shortcode"`
	FetchCommentCount             any    `json:"fetch_comment_count"`
	FetchRelatedProfileMediaCount any    `json:"fetch_related_profile_media_count"`
	ParentCommentCount            any    `json:"parent_comment_count"`
	ChildCommentCount             any    `json:"child_comment_count"`
	FetchLikeCount                any    `json:"fetch_like_count"`
	FetchTaggedUserCount          any    `json:"fetch_tagged_user_count"`
	FetchPreviewCommentCount      any    `json:"fetch_preview_comment_count"`
	HasThreadedComments           bool   `json:"has_threaded_comments"`
	HoistedCommentID              any    `json:"hoisted_comment_id"`
	HoistedReplyID                any    `json:"hoisted_reply_id"`
}

// Resolve fetches the post behind an Instagram URL and returns its metadata
// together with the direct media URLs, in document order for carousels.
func (c *Client) Resolve(ctx context.Context, postURL string) (*domain.Resolution, error) {
	shortcode := ExtractShortcode(postURL)
	if shortcode == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoShortcode, postURL)
	}

	form, err := c.requestForm(shortcode)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-FB-Friendly-Name", c.cfg.FriendlyName)
	req.Header.Set("X-CSRFToken", c.cfg.CSRFToken)
	req.Header.Set("X-IG-App-ID", c.cfg.AppID)
	req.Header.Set("X-FB-LSD", c.cfg.LSD)
	req.Header.Set("X-ASBD-ID", c.cfg.ASBDID)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("graphql error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	media := parsed.Data.Media
	if media == nil {
		return nil, fmt.Errorf("%w: shortcode %s", ErrNoMedia, shortcode)
	}

	urls := media.mediaURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: post %s has no fetchable assets", ErrNoMedia, shortcode)
	}

	return &domain.Resolution{
		MediaURLs: urls,
		SourceURL: postURL,
		Title:     media.caption(),
		Username:  media.Owner.Username,
		Thumbnail: media.DisplayURL,
		Likes:     media.EdgeMediaPreviewLike.Count,
		Comments:  media.EdgeMediaToComment.Count,
		IsVideo:   media.IsVideo,
	}, nil
}

// requestForm encodes the full form body for the post query.
func (c *Client) requestForm(shortcode string) (string, error) {
	vars, err := json.Marshal(queryVariables{Shortcode: shortcode})
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}

	form := url.Values{}
	form.Set("av", "0")
	form.Set("__d", "www")
	form.Set("__user", "0")
	form.Set("__a", "1")
	form.Set("__req", "3")
	form.Set("__hs", formHS)
	form.Set("dpr", "3")
	form.Set("__ccg", "UNKNOWN")
	form.Set("__rev", formRev)
	form.Set("__s", formS)
	form.Set("__hsi", formHSI)
	form.Set("__dyn", formDyn)
	form.Set("__csr", formCSR)
	form.Set("__comet_req", "7")
	form.Set("lsd", c.cfg.LSD)
	form.Set("jazoest", formJazo)
	form.Set("__spin_r", formRev)
	form.Set("__spin_b", "trunk")
	form.Set("__spin_t", formSpinT)
	form.Set("fb_api_caller_class", "RelayModern")
	form.Set("fb_api_req_friendly_name", c.cfg.FriendlyName)
	form.Set("variables", string(vars))
	form.Set("server_timestamps", "true")
	form.Set("doc_id", c.cfg.DocID)
	return form.Encode(), nil
}

// graphResponse is the envelope of the post query response.
type graphResponse struct {
	Data struct {
		Media *shortcodeMedia `json:"xdt_shortcode_media"`
	} `json:"data"`
}

// shortcodeMedia is the media node of a post. Carousels carry their items
// under edge_sidecar_to_children; single posts carry the URLs directly.
type shortcodeMedia struct {
	ID         string `json:"id"`
	Shortcode  string `json:"shortcode"`
	DisplayURL string `json:"display_url"`
	VideoURL   string `json:"video_url"`
	IsVideo    bool   `json:"is_video"`
	Owner      struct {
		Username string `json:"username"`
	} `json:"owner"`
	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	EdgeMediaPreviewLike struct {
		Count int `json:"count"`
	} `json:"edge_media_preview_like"`
	EdgeMediaToComment struct {
		Count int `json:"count"`
	} `json:"edge_media_to_comment"`
	EdgeSidecarToChildren *struct {
		Edges []struct {
			Node struct {
				DisplayURL string `json:"display_url"`
				VideoURL   string `json:"video_url"`
				IsVideo    bool   `json:"is_video"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

// mediaURLs returns the direct asset URLs of the post. Videos prefer their
// video_url over the display image.
func (m *shortcodeMedia) mediaURLs() []string {
	if m.EdgeSidecarToChildren != nil {
		var urls []string
		for _, edge := range m.EdgeSidecarToChildren.Edges {
			u := edge.Node.VideoURL
			if u == "" {
				u = edge.Node.DisplayURL
			}
			if u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	}

	u := m.VideoURL
	if u == "" {
		u = m.DisplayURL
	}
	if u == "" {
		return nil
	}
	return []string{u}
}

func (m *shortcodeMedia) caption() string {
	if len(m.EdgeMediaToCaption.Edges) == 0 {
		return ""
	}
	return m.EdgeMediaToCaption.Edges[0].Node.Text
}
