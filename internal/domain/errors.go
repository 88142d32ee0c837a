package domain

import "errors"

// Domain errors.
var (
	// ErrUnsupportedURL is returned when a URL matches no supported platform pattern.
	ErrUnsupportedURL = errors.New("unsupported media URL")

	// ErrMediaUnavailable is returned when the platform reports the media as gone or private.
	ErrMediaUnavailable = errors.New("media not found or unavailable")

	// ErrResolveUnavailable is returned when every resolution path for a post has failed.
	ErrResolveUnavailable = errors.New("resolution temporarily unavailable")

	// ErrNoMediaURLs is returned when a post resolves to zero media assets.
	ErrNoMediaURLs = errors.New("no media URLs resolved")

	// ErrFileTooLarge is returned when a download exceeds the configured size cap.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrDownloadNotFound is returned when a download cannot be found in the registry.
	ErrDownloadNotFound = errors.New("download not found")

	// ErrFileNotFound is returned when a spool file cannot be found.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFilename is returned for filenames that escape the spool directory.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrStorageFull is returned when there is insufficient free disk space.
	ErrStorageFull = errors.New("insufficient storage space")

	// ErrURLExpired is returned when a resolved media URL has expired upstream.
	ErrURLExpired = errors.New("media URL has expired")

	// ErrRateLimited is returned when rate limited by external services.
	ErrRateLimited = errors.New("rate limited")
)

// DownloadError wraps an error with download context.
type DownloadError struct {
	DownloadID DownloadID
	Op         string
	Err        error
}

func (e *DownloadError) Error() string {
	if e.DownloadID != "" {
		return e.Op + " [" + e.DownloadID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new DownloadError.
func NewDownloadError(id DownloadID, op string, err error) *DownloadError {
	return &DownloadError{
		DownloadID: id,
		Op:         op,
		Err:        err,
	}
}
