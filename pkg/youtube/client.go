// Package youtube fetches audio and video streams from YouTube, including
// shorts. Format selection is deliberately simple: the best muxed mp4 for
// video, the highest-bitrate audio-only stream for audio. Streams are served
// as-is in their native container.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ytdl "github.com/kkdai/youtube/v2"

	"github.com/reelgrab/reelgrab/internal/domain"
)

// ErrNoFormats is returned when a video exposes no stream matching the
// requested kind.
var ErrNoFormats = errors.New("no suitable formats")

// Client fetches YouTube streams.
type Client struct {
	yt ytdl.Client
}

// NewClient creates a new YouTube client. A nil httpClient uses the
// library's default transport.
func NewClient(httpClient *http.Client) *Client {
	return &Client{yt: ytdl.Client{HTTPClient: httpClient}}
}

// Media is an open stream plus the metadata needed to register and serve it.
// The caller owns Stream and must close it.
type Media struct {
	ID          string
	Title       string
	Author      string
	Duration    time.Duration
	Thumbnail   string
	ContentType string
	Ext         string

	// Size is the stream's content length in bytes, zero when unknown.
	Size int64

	Stream io.ReadCloser
}

// Fetch opens the stream for a YouTube URL. Audio requests get the best
// audio-only format; video and shorts requests get the best muxed format,
// preferring mp4.
func (c *Client) Fetch(ctx context.Context, videoURL string, kind domain.MediaKind) (*Media, error) {
	video, err := c.yt.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	var format *ytdl.Format
	switch kind {
	case domain.KindAudio:
		format = bestAudioFormat(video.Formats)
	default:
		format = bestMuxedFormat(video.Formats)
	}
	if format == nil {
		return nil, fmt.Errorf("%w: video %s kind %s", ErrNoFormats, video.ID, kind)
	}

	stream, size, err := c.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	if size <= 0 {
		size = format.ContentLength
	}

	contentType := baseMimeType(format.MimeType)
	return &Media{
		ID:          video.ID,
		Title:       video.Title,
		Author:      video.Author,
		Duration:    video.Duration,
		Thumbnail:   bestThumbnail(video.Thumbnails),
		ContentType: contentType,
		Ext:         extForMimeType(contentType),
		Size:        size,
		Stream:      stream,
	}, nil
}

// bestAudioFormat picks the highest-bitrate audio-only stream.
func bestAudioFormat(formats ytdl.FormatList) *ytdl.Format {
	return maxBitrate(formats.Type("audio"))
}

// bestMuxedFormat picks the highest-bitrate stream carrying both video and
// audio, preferring mp4 when one exists.
func bestMuxedFormat(formats ytdl.FormatList) *ytdl.Format {
	muxed := formats.WithAudioChannels().Type("video")
	if mp4 := muxed.Type("video/mp4"); len(mp4) > 0 {
		return maxBitrate(mp4)
	}
	return maxBitrate(muxed)
}

func maxBitrate(formats ytdl.FormatList) *ytdl.Format {
	var best *ytdl.Format
	for i := range formats {
		if best == nil || formats[i].Bitrate > best.Bitrate {
			best = &formats[i]
		}
	}
	return best
}

// bestThumbnail returns the URL of the widest thumbnail.
func bestThumbnail(thumbnails ytdl.Thumbnails) string {
	var url string
	var width uint
	for _, t := range thumbnails {
		if url == "" || t.Width > width {
			url = t.URL
			width = t.Width
		}
	}
	return url
}

// baseMimeType strips codec parameters from a format MIME type.
func baseMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base)
}

// extForMimeType maps a stream MIME type to its conventional file extension.
func extForMimeType(mimeType string) string {
	switch mimeType {
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	case "video/3gpp":
		return "3gp"
	case "audio/mp4":
		return "m4a"
	case "audio/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	}
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		return sub
	}
	return "bin"
}
