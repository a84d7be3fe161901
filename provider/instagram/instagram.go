package instagram

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "instagram"

type Config struct {
	Endpoint string
}

func NewConfig() Config {
	return Config{Endpoint: "https://ripple-instagram.vercel.app/api"}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  provider.PriorityInstagram,
	}
}

type response struct {
	Status string `json:"status"`
	Data   struct {
		Type   string   `json:"type"`
		Video  string   `json:"video"`
		Images []string `json:"images"`
	} `json:"data"`
}

type extractor struct {
	config Config
	client *download.Client
}

func (e *extractor) Extract(ctx context.Context, req clipbot.Request) clipbot.Outcome {
	if !req.HostMatches("instagram.com") {
		return clipbot.Skip()
	}
	var resp response
	if err := e.client.GetJSON(ctx, e.config.Endpoint, url.Values{"url": {req.URL}}, &resp); err != nil {
		return clipbot.Fail(fmt.Errorf("lookup failed: %w", err))
	}
	if resp.Status != "success" {
		return clipbot.Fail(fmt.Errorf("api status %q", resp.Status))
	}
	switch {
	case resp.Data.Type == "video":
		return provider.Video(ctx, e.client, resp.Data.Video)
	case len(resp.Data.Images) > 0:
		return provider.Photos(ctx, e.client, req, resp.Data.Images)
	default:
		return clipbot.Fail(fmt.Errorf("unsupported post type %q", resp.Data.Type))
	}
}
