package domain

import (
	"strings"
	"time"
)

// DownloadID is a unique identifier for a stored download.
type DownloadID string

// String returns the string representation of the DownloadID.
func (id DownloadID) String() string {
	return string(id)
}

// Platform identifies the source platform of a download request.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// MediaKind selects which rendition of a video is wanted.
type MediaKind string

const (
	KindAudio  MediaKind = "audio"
	KindVideo  MediaKind = "video"
	KindShorts MediaKind = "shorts"
)

// Download represents one media file held in the spool directory.
// Files and their registry rows share a lifetime: both are removed by the
// daily sweep once ExpiresAt has passed.
type Download struct {
	ID          DownloadID
	Platform    Platform
	Kind        MediaKind
	SourceURL   string
	Title       string
	Thumbnail   string
	Filename    string
	Size        int64
	ContentType string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// PublicURL returns the time-boxed URL the file is served under.
func (d *Download) PublicURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/files/" + d.Filename
}

// Expired reports whether the download has outlived its retention window.
func (d *Download) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// Resolution is the outcome of resolving a post URL to direct media.
type Resolution struct {
	// MediaURLs are direct, fetchable asset URLs in source document order.
	// The first entry is the primary asset.
	MediaURLs []string

	// SourceURL is the post URL the resolution was performed for.
	SourceURL string

	// Metadata is only populated when the primary resolution path succeeded;
	// the intermediary fallback yields links without post metadata.
	Title     string
	Username  string
	Thumbnail string
	Likes     int
	Comments  int
	IsVideo   bool
}
