// Package provider holds helpers shared by the extraction strategies in its subpackages.
package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
)

var (
	ErrNoMedia      = errors.New("no media in response")
	ErrLinkNotFound = errors.New("download link not found")
)

// Priorities of the bundled strategies, lowest tried first.
const (
	PriorityInstagram int16 = 10 * (iota + 1)
	PriorityYouTube
	PrioritySnapTik
	PriorityTikWM
	PriorityVxTikTok
	PriorityTikMate
	PrioritySSSTik
	PriorityDouyin
)

// TikTokDomains are the hosts served by the TikTok-only strategies.
var TikTokDomains = []string{"tiktok.com"}

// Video downloads a video from a URL found by an extractor.
func Video(ctx context.Context, client *download.Client, src string) clipbot.Outcome {
	if src == "" {
		return clipbot.Fail(ErrNoMedia)
	}
	data, err := client.Bytes(ctx, src)
	if err != nil {
		return clipbot.Fail(fmt.Errorf("video download failed: %w", err))
	}
	return clipbot.Success(clipbot.Video(data))
}

// Photos hands back hosted photo URLs as-is for inline requests, and fetches them for direct requests.
func Photos(ctx context.Context, client *download.Client, req clipbot.Request, urls []string) clipbot.Outcome {
	if len(urls) == 0 {
		return clipbot.Fail(ErrNoMedia)
	}
	if req.Mode == clipbot.ModeInline {
		return clipbot.Success(clipbot.PhotoURLSet(urls))
	}
	photos, err := client.AllBytes(ctx, urls)
	if err != nil {
		return clipbot.Fail(fmt.Errorf("photo download failed: %w", err))
	}
	return clipbot.Success(clipbot.PhotoSet(photos))
}

// ScrapeVideo finds the first capture of pattern in an HTML page and downloads it as a video.
func ScrapeVideo(ctx context.Context, client *download.Client, page string, pattern *regexp.Regexp) clipbot.Outcome {
	m := pattern.FindStringSubmatch(page)
	if len(m) < 2 {
		return clipbot.Fail(ErrLinkNotFound)
	}
	return Video(ctx, client, m[1])
}

// FirstNonEmpty returns the first non-empty value.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
