package service

import (
	"strings"

	"github.com/tidwall/match"

	"github.com/reelgrab/reelgrab/internal/domain"
)

// Post URL shapes per platform, matched after stripping scheme and www.
var (
	youtubePatterns = []string{
		"youtube.com/watch*",
		"youtube.com/shorts/*",
		"youtube.com/live/*",
		"m.youtube.com/watch*",
		"music.youtube.com/watch*",
		"youtu.be/*",
	}
	instagramPatterns = []string{
		"instagram.com/p/*",
		"instagram.com/reel/*",
		"instagram.com/reels/*",
		"instagram.com/tv/*",
		"instagram.com/stories/*",
	}
	facebookPatterns = []string{
		"facebook.com/*/videos/*",
		"facebook.com/watch*",
		"facebook.com/reel/*",
		"facebook.com/share/*",
		"fb.watch/*",
	}
)

// DetectPlatform classifies a post URL by its host and path shape.
func DetectPlatform(rawURL string) (domain.Platform, error) {
	switch {
	case matchesAny(rawURL, youtubePatterns):
		return domain.PlatformYouTube, nil
	case matchesAny(rawURL, instagramPatterns):
		return domain.PlatformInstagram, nil
	case matchesAny(rawURL, facebookPatterns):
		return domain.PlatformFacebook, nil
	}
	return "", domain.ErrUnsupportedURL
}

func matchesAny(url string, patterns []string) bool {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "www.")
	for _, p := range patterns {
		if match.Match(url, p) {
			return true
		}
	}
	return false
}
