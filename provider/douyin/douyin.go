package douyin

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "douyin"

var Domains = []string{"douyin.com", "iesdouyin.com"}

type Config struct {
	Endpoint string
}

func NewConfig() Config {
	return Config{Endpoint: "https://api.douyin.wtf/api"}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  provider.PriorityDouyin,
	}
}

type response struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
	Data       struct {
		Images         []string `json:"images"`
		VideoURLHQ     string   `json:"nwm_video_url_HQ"`
		VideoURL       string   `json:"nwm_video_url"`
		WatermarkedURL string   `json:"wm_video_url"`
	} `json:"data"`
}

type extractor struct {
	config Config
	client *download.Client
}

func (e *extractor) Extract(ctx context.Context, req clipbot.Request) clipbot.Outcome {
	if !req.HostMatches(Domains...) {
		return clipbot.Skip()
	}
	query := url.Values{
		"url":     {req.URL},
		"minimal": {"false"},
	}
	var resp response
	if err := e.client.GetJSON(ctx, e.config.Endpoint, query, &resp); err != nil {
		return clipbot.Fail(fmt.Errorf("lookup failed: %w", err))
	}
	if resp.StatusCode != 0 {
		return clipbot.Fail(fmt.Errorf("api error %d: %s", resp.StatusCode, resp.StatusMsg))
	}
	if len(resp.Data.Images) > 0 {
		return provider.Photos(ctx, e.client, req, resp.Data.Images)
	}
	return provider.Video(ctx, e.client, provider.FirstNonEmpty(resp.Data.VideoURLHQ, resp.Data.VideoURL, resp.Data.WatermarkedURL))
}
