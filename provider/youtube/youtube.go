package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "youtube"

var ErrNoFormat = errors.New("no mp4 format with audio fits the size limit")

type Config struct {
	// Only formats with this MIME type prefix are considered.
	MimeType string
}

func NewConfig() Config {
	return Config{MimeType: "video/mp4"}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name: Name,
		Extractor: &extractor{
			config: c,
			client: client,
			yt:     &youtube.Client{HTTPClient: client.HTTPClient()},
		},
		Priority: provider.PriorityYouTube,
	}
}

type extractor struct {
	config Config
	client *download.Client
	yt     *youtube.Client
}

func (e *extractor) Extract(ctx context.Context, req clipbot.Request) clipbot.Outcome {
	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return clipbot.Skip()
	}
	videoID, err := extractVideoID(parsedURL)
	if err != nil {
		return clipbot.Skip()
	}

	video, err := e.yt.GetVideoContext(ctx, videoID)
	if err != nil {
		return clipbot.Fail(fmt.Errorf("failed to get video info: %w", err))
	}
	format := selectFormat(video.Formats, e.config.MimeType, e.client.MaxBytes())
	if format == nil {
		return clipbot.Fail(ErrNoFormat)
	}
	stream, size, err := e.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return clipbot.Fail(fmt.Errorf("failed to get stream: %w", err))
	}
	defer stream.Close()
	data, err := e.client.ReadAll(ctx, stream, size)
	if err != nil {
		return clipbot.Fail(fmt.Errorf("video download failed: %w", err))
	}
	if len(data) == 0 {
		return clipbot.Fail(download.ErrEmpty)
	}
	return clipbot.Success(clipbot.Video(data))
}

// selectFormat picks the highest bitrate format with audio of the wanted MIME type whose known size is within
// limit. Formats of unknown size are only used if nothing of known size fits.
func selectFormat(formats youtube.FormatList, mimeType string, limit int64) *youtube.Format {
	var best, unknown *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || !strings.HasPrefix(f.MimeType, mimeType) {
			continue
		}
		if f.ContentLength == 0 {
			if unknown == nil || f.Bitrate > unknown.Bitrate {
				unknown = f
			}
			continue
		}
		if limit > 0 && f.ContentLength > limit {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best != nil {
		return best
	}
	return unknown
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m).youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www|m).youtube.com/(v|shorts)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (string, error) {
	var id string
	switch strings.ToLower(url.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		if strings.HasPrefix(url.Path, "/v/") || strings.HasPrefix(url.Path, "/shorts/") {
			id = strings.SplitN(url.Path, "/", 4)[2]
		} else if url.Path == "/watch" || url.Path == "/details" {
			if url.Query().Has("v") {
				id = url.Query().Get("v")
			} else {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
		}
	case "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	return id, nil
}
