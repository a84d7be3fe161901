package ssstik

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "ssstik"

type Config struct {
	Endpoint string
	Locale   string
	Pattern  *regexp.Regexp
}

func NewConfig() Config {
	return Config{
		Endpoint: "https://ssstik.io/abc?url=dl",
		Locale:   "en",
		Pattern:  regexp.MustCompile(`href="(https://[^"]+\.mp4)"`),
	}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  provider.PrioritySSSTik,
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
	form := url.Values{
		"id":     {req.URL},
		"locale": {e.config.Locale},
	}
	page, err := e.client.PostForm(ctx, e.config.Endpoint, form)
	if err != nil {
		return clipbot.Fail(fmt.Errorf("lookup failed: %w", err))
	}
	return provider.ScrapeVideo(ctx, e.client, page, e.config.Pattern)
}
