// Package providers registers every bundled extraction strategy.
package providers

import (
	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/provider/douyin"
	"github.com/alanbriolat/clipbot/provider/instagram"
	"github.com/alanbriolat/clipbot/provider/raw"
	"github.com/alanbriolat/clipbot/provider/snaptik"
	"github.com/alanbriolat/clipbot/provider/ssstik"
	"github.com/alanbriolat/clipbot/provider/tikmate"
	"github.com/alanbriolat/clipbot/provider/tikwm"
	"github.com/alanbriolat/clipbot/provider/vxtiktok"
	"github.com/alanbriolat/clipbot/provider/youtube"
)

// Strategies returns the bundled strategies, all downloading through client.
func Strategies(client *download.Client) []clipbot.Strategy {
	return []clipbot.Strategy{
		instagram.NewConfig().Strategy(client),
		youtube.NewConfig().Strategy(client),
		snaptik.NewConfig().Strategy(client),
		tikwm.NewConfig().Strategy(client),
		vxtiktok.NewConfig().Strategy(client),
		tikmate.NewConfig().Strategy(client),
		ssstik.NewConfig().Strategy(client),
		douyin.NewConfig().Strategy(client),
		raw.NewConfig().Strategy(client),
	}
}

// RegisterAll adds the bundled strategies to r.
func RegisterAll(r *clipbot.StrategyRegistry, client *download.Client) error {
	for _, s := range Strategies(client) {
		if err := r.Add(s); err != nil {
			return err
		}
	}
	return nil
}
