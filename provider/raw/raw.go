package raw

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/generic"
	"github.com/alanbriolat/clipbot/provider"
	"github.com/alanbriolat/clipbot/util"
)

const Name = "raw"

type Config struct {
	Protocols       generic.Set[string]
	VideoExtensions generic.Set[string]
	PhotoExtensions generic.Set[string]
}

func NewConfig() Config {
	return Config{
		Protocols: generic.NewSet(
			"http",
			"https",
		),
		VideoExtensions: generic.NewSet(
			"flv",
			"m4v",
			"mkv",
			"mp4",
			"webm",
		),
		PhotoExtensions: generic.NewSet(
			"jpeg",
			"jpg",
			"png",
			"webp",
		),
	}
}

// Match checks that s is a link straight to a media file, returning its lowercase extension.
func (c *Config) Match(s string) (string, error) {
	// Expect string to be a URL
	parsedURL, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	// Check that scheme/protocol is valid
	if !c.Protocols.Contains(parsedURL.Scheme) {
		return "", fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	// Attempt to extract filename and extension
	filename, err := util.FilenameFromURL(parsedURL)
	if err != nil {
		return "", err
	}
	extension := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if extension == "" {
		return "", fmt.Errorf("no file extension found")
	}
	if !c.VideoExtensions.Contains(extension) && !c.PhotoExtensions.Contains(extension) {
		return "", fmt.Errorf("unknown file extension %v", extension)
	}
	return extension, nil
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  clipbot.PriorityLowest,
	}
}

type extractor struct {
	config Config
	client *download.Client
}

func (e *extractor) Extract(ctx context.Context, req clipbot.Request) clipbot.Outcome {
	// Match against the link as sent, since normalization drops query strings that signed URLs need
	src := req.RawURL
	if src == "" {
		src = req.URL
	}
	extension, err := e.config.Match(src)
	if err != nil {
		return clipbot.Skip()
	}
	if e.config.PhotoExtensions.Contains(extension) {
		return provider.Photos(ctx, e.client, req, []string{src})
	}
	return provider.Video(ctx, e.client, src)
}
