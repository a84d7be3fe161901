package tikwm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "tikwm"

type Config struct {
	Endpoint string
}

func NewConfig() Config {
	return Config{Endpoint: "https://tikwm.com/api/"}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  provider.PriorityTikWM,
	}
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Type   string   `json:"type"`
		HDPlay string   `json:"hdplay"`
		Play   string   `json:"play"`
		Images []string `json:"images"`
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
	if resp.Code != 0 {
		return clipbot.Fail(fmt.Errorf("api error %d: %s", resp.Code, resp.Msg))
	}
	switch {
	case resp.Data.Type == "video":
		return provider.Video(ctx, e.client, provider.FirstNonEmpty(resp.Data.HDPlay, resp.Data.Play))
	case len(resp.Data.Images) > 0:
		return provider.Photos(ctx, e.client, req, resp.Data.Images)
	default:
		return clipbot.Fail(fmt.Errorf("unknown content type %q", resp.Data.Type))
	}
}
