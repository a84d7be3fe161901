package main

import (
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/alanbriolat/clipbot"
)

func parseConfig(t *testing.T, args ...string) (clipbot.Config, error) {
	var config clipbot.Config
	var loadErr error
	app := &cli.App{
		Name:  "clipbot",
		Flags: flags(),
		Action: func(c *cli.Context) error {
			config, loadErr = loadConfig(c)
			return nil
		},
	}
	require_.NoError(t, app.Run(append([]string{"clipbot"}, args...)))
	return config, loadErr
}

func TestLoadConfig_Defaults(t *testing.T) {
	assert := assert_.New(t)

	config, err := parseConfig(t, "--token", "secret")
	assert.NoError(err)
	expected := clipbot.DefaultConfig
	expected.TelegramToken = "secret"
	assert.Equal(expected, config)
}

func TestLoadConfig_Overrides(t *testing.T) {
	assert := assert_.New(t)
	t.Setenv("CACHE_TTL_DAYS", "7")
	t.Setenv("MAX_MB", "20")

	config, err := parseConfig(t,
		"--token", "secret",
		"--strategy", "tikwm", "--strategy", "snaptik",
		"--report-last-error",
		"--stats", "",
		"--direct-timeout", "1m",
	)
	assert.NoError(err)
	assert.Equal(7*24*time.Hour, config.CacheTTL)
	assert.EqualValues(20*clipbot.MiB, config.MaxVideoBytes)
	assert.Equal([]string{"tikwm", "snaptik"}, config.Strategies)
	assert.True(config.ReportLastError)
	assert.Empty(config.StatsPath)
	assert.Equal(time.Minute, config.DirectTimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := parseConfig(t, "--token", "secret", "--cache-ttl-days", "0")
	assert_.ErrorIs(t, err, clipbot.ErrInvalidConfig)
}
