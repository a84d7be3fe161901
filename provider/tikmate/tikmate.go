package tikmate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider"
)

const Name = "tikmate"

var (
	ErrNoVideoID = errors.New("no video ID in URL")
	ErrNoToken   = errors.New("lookup returned no token")
)

type Config struct {
	LookupEndpoint string
	DownloadBase   string
}

func NewConfig() Config {
	return Config{
		LookupEndpoint: "https://api.tikmate.app/api/lookup",
		DownloadBase:   "https://tikmate.app/download",
	}
}

func (c Config) Strategy(client *download.Client) clipbot.Strategy {
	return clipbot.Strategy{
		Name:      Name,
		Extractor: &extractor{config: c, client: client},
		Priority:  provider.PriorityTikMate,
	}
}

type lookup struct {
	Token string `json:"token"`
}

type extractor struct {
	config Config
	client *download.Client
}

func (e *extractor) Extract(ctx context.Context, req clipbot.Request) clipbot.Outcome {
	if !req.HostMatches(provider.TikTokDomains...) {
		return clipbot.Skip()
	}
	id, err := VideoID(req.URL)
	if err != nil {
		return clipbot.Fail(err)
	}
	var resp lookup
	if err := e.client.GetJSON(ctx, e.config.LookupEndpoint, url.Values{"id": {id}}, &resp); err != nil {
		return clipbot.Fail(fmt.Errorf("lookup failed: %w", err))
	}
	if resp.Token == "" {
		return clipbot.Fail(ErrNoToken)
	}
	src := fmt.Sprintf("%s/%s/%s.mp4", strings.TrimRight(e.config.DownloadBase, "/"), url.PathEscape(resp.Token), id)
	return provider.Video(ctx, e.client, src)
}

// VideoID is the last path segment of a TikTok video URL.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "" || id == "." || id == "/" {
		return "", ErrNoVideoID
	}
	return id, nil
}
