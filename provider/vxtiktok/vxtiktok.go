package vxtiktok

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "vxtiktok"

var ErrUnsupported = errors.New("only videos are supported")

type Config struct {
	Endpoint string
}

func NewConfig() Config {
	return Config{Endpoint: "https://ripple-vx-tiktok.vercel.app/api"}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  provider.PriorityVxTikTok,
	}
}

type response struct {
	Status string `json:"status"`
	Data   struct {
		Type  string `json:"type"`
		Video string `json:"video"`
	} `json:"data"`
}

type extractor struct {
	config Config
	client *download.Client
}

func (e *extractor) Extract(ctx context.Context, req clipbot.Request) clipbot.Outcome {
	if !req.HostMatches(provider.TikTokDomains...) {
		return clipbot.Skip()
	}
	var resp response
	if err := e.client.GetJSON(ctx, e.config.Endpoint, url.Values{"url": {req.URL}}, &resp); err != nil {
		return clipbot.Fail(fmt.Errorf("lookup failed: %w", err))
	}
	if resp.Status != "success" {
		return clipbot.Fail(fmt.Errorf("api status %q", resp.Status))
	}
	if resp.Data.Type != "video" {
		return clipbot.Fail(fmt.Errorf("%w, got %q", ErrUnsupported, resp.Data.Type))
	}
	return provider.Video(ctx, e.client, resp.Data.Video)
}
