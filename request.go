package clipbot

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
)

// Mode selects between the synchronous reply flow and the latency-bounded inline flow.
type Mode int

const (
	ModeDirect Mode = iota
	ModeInline
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeInline:
		return "inline"
	default:
		return "unknown"
	}
}

// A Request is a single URL to resolve, created per incoming message or query and never persisted.
type Request struct {
	RawURL      string
	URL         string
	Fingerprint string
	Mode        Mode
}

// NewRequest normalizes the (already expanded) URL and computes its fingerprint.
func NewRequest(rawURL string, expandedURL string, mode Mode) Request {
	normalized := NormalizeURL(expandedURL)
	return Request{
		RawURL:      rawURL,
		URL:         normalized,
		Fingerprint: Fingerprint(normalized),
		Mode:        mode,
	}
}

// Host returns the lowercase hostname of the request URL, or "" if it can't be parsed.
func (r Request) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// HostMatches is true if the request host is one of the domains or a subdomain of one.
func (r Request) HostMatches(domains ...string) bool {
	host := r.Host()
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Fingerprint is the cache key for a normalized URL.
func Fingerprint(normalizedURL string) string {
	sum := sha1.Sum([]byte(normalizedURL))
	return hex.EncodeToString(sum[:])
}

// Query parameters that identify content rather than tracking where the link was shared from.
var significantQuery = map[string][]string{
	"youtube.com": {"v"},
}

// NormalizeURL produces a canonical form so that equivalent links share a fingerprint: lowercase scheme and host,
// no fragment, no tracking query parameters and no trailing slash. Unparseable input is returned trimmed.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	query := url.Values{}
	host := strings.TrimPrefix(strings.TrimPrefix(u.Hostname(), "www."), "m.")
	for _, key := range significantQuery[host] {
		if v := u.Query().Get(key); v != "" {
			query.Set(key, v)
		}
	}
	u.RawQuery = query.Encode()

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	return u.String()
}
