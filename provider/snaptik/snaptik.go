package snaptik

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "snaptik"

type Config struct {
	Endpoint string
	// Pattern finds the video link in the result page; the first capture group is the URL.
	Pattern *regexp.Regexp
}

func NewConfig() Config {
	return Config{
		Endpoint: "https://snaptik.app/abc.php",
		Pattern:  regexp.MustCompile(`(https://[^"]+snaptik[^"]+download[^"]+\.mp4)`),
	}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  provider.PrioritySnapTik,
	}
}

type extractor struct {
	config Config
	client *download.Client
}

func (e *extractor) Extract(ctx context.Context, req clipbot.Request) clipbot.Outcome {
	if !req.HostMatches(provider.TikTokDomains...) {
		return clipbot.Skip()
	}
	page, err := e.client.PostForm(ctx, e.config.Endpoint, url.Values{"url": {req.URL}})
	if err != nil {
		return clipbot.Fail(fmt.Errorf("lookup failed: %w", err))
	}
	return provider.ScrapeVideo(ctx, e.client, page, e.config.Pattern)
}
