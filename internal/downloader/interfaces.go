package downloader

import (
	"context"
	"io"
)

// Downloader fetches media content from direct URLs.
type Downloader interface {
	// Download fetches the resource in a single attempt. The caller owns the
	// returned reader and must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, *FileInfo, error)
}

// FileInfo describes a stream before it is spooled to disk.
type FileInfo struct {
	// Size is the advertised content length in bytes, zero when unknown.
	Size int64

	// ContentType is the media type without parameters, empty when unknown.
	ContentType string

	// Ext is the file extension without the leading dot, empty when unknown.
	Ext string
}
