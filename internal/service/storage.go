package service

import (
	"path/filepath"

	"github.com/reelgrab/reelgrab/internal/domain"
)

// ensureDiskSpace rejects a download up front when the spool volume cannot
// hold a worst-case file. The spool directory may not exist before the first
// save, so the check falls back to its parent.
func ensureDiskSpace(dir string, need int64) error {
	if need <= 0 {
		return nil
	}

	free := getFreeDiskSpace(dir)
	if free == 0 {
		free = getFreeDiskSpace(filepath.Dir(dir))
	}
	if free == 0 {
		// Could not stat the volume. Let the write surface the real error.
		return nil
	}

	if free < need {
		return domain.ErrStorageFull
	}
	return nil
}

// buildFilename joins a download id with a file extension. Generated ids
// make names collision-free, so the spool needs no locking.
func buildFilename(id domain.DownloadID, ext, fallbackExt string) string {
	if ext == "" {
		ext = fallbackExt
	}
	return id.String() + "." + ext
}
