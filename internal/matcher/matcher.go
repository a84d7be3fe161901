package matcher

import (
	"context"
	"iter"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/generic"
)

const DefaultExpandTimeout = 10 * time.Second

// A Grammar recognises links to one platform. Patterns must not be anchored and must not contain capture groups.
type Grammar struct {
	Name    string
	Pattern string
}

var DefaultGrammars = []Grammar{
	{"tiktok", `https?://(?:(?:www|vm|vt|m)\.)?tiktok\.com/\S+`},
	{"douyin", `https?://(?:(?:www|v|m)\.)?douyin\.com/\S+`},
	{"iesdouyin", `https?://(?:www\.)?iesdouyin\.com/\S+`},
	{"instagram", `https?://(?:www\.)?instagram\.com/(?:p|reels?|tv)/\S+`},
	{"youtube", `https?://(?:(?:www|m)\.)?youtube\.com/(?:shorts/|watch\?)\S+`},
	{"youtu.be", `https?://youtu\.be/\S+`},
	{"media", `https?://\S+?\.(?:mp4|m4v|webm|mkv|flv|jpe?g|png|webp)(?:\?\S*)?`},
}

// Characters that commonly follow a link in prose but are never the end of one.
const trailing = `.,;:!?'")]}>` + "»"

// Hosts whose links are redirects to the canonical URL.
var shortHosts = generic.NewSet("vm.tiktok.com", "vt.tiktok.com", "v.douyin.com")

// A Matcher finds supported links in free text and turns them into resolution requests.
type Matcher struct {
	pattern       *regexp.Regexp
	client        *download.Client
	expandTimeout time.Duration
	log           *zap.SugaredLogger
}

// New builds a Matcher for the grammars (DefaultGrammars if none). Short links are expanded through client; a nil
// client disables expansion.
func New(client *download.Client, expandTimeout time.Duration, grammars ...Grammar) *Matcher {
	if len(grammars) == 0 {
		grammars = DefaultGrammars
	}
	if expandTimeout <= 0 {
		expandTimeout = DefaultExpandTimeout
	}
	alternatives := make([]string, len(grammars))
	for i, g := range grammars {
		alternatives[i] = "(?:" + g.Pattern + ")"
	}
	return &Matcher{
		pattern:       regexp.MustCompile("(?i)" + strings.Join(alternatives, "|")),
		client:        client,
		expandTimeout: expandTimeout,
		log:           zap.S().Named("matcher"),
	}
}

// All yields every supported link in text, left to right. Each distinct link is yielded once.
func (m *Matcher) All(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := generic.NewSet[string]()
		rest := text
		for {
			loc := m.pattern.FindStringIndex(rest)
			if loc == nil {
				return
			}
			match := strings.TrimRight(rest[loc[0]:loc[1]], trailing)
			rest = rest[loc[1]:]
			if seen.Add(match) && !yield(match) {
				return
			}
		}
	}
}

// First returns the first supported link in text.
func (m *Matcher) First(text string) (string, bool) {
	for u := range m.All(text) {
		return u, true
	}
	return "", false
}

// IsShortLink reports whether rawURL is a redirecting short link.
func IsShortLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if shortHosts.Contains(host) {
		return true
	}
	return (host == "tiktok.com" || host == "www.tiktok.com") && strings.HasPrefix(u.Path, "/t/")
}

// Expand follows a short link to its destination. Anything else, and any failure, gives back rawURL unchanged.
func (m *Matcher) Expand(ctx context.Context, rawURL string) string {
	if m.client == nil || !IsShortLink(rawURL) {
		return rawURL
	}
	ctx, cancel := context.WithTimeout(ctx, m.expandTimeout)
	defer cancel()
	expanded, err := m.client.FinalURL(ctx, rawURL)
	if err != nil {
		m.log.Warnw("failed to expand short link", "url", rawURL, "error", err)
		return rawURL
	}
	m.log.Debugw("expanded short link", "url", rawURL, "expanded", expanded)
	return expanded
}

// Request expands, normalizes and fingerprints a matched link.
func (m *Matcher) Request(ctx context.Context, rawURL string, mode clipbot.Mode) clipbot.Request {
	return clipbot.NewRequest(rawURL, m.Expand(ctx, rawURL), mode)
}
