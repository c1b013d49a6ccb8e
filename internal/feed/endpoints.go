package feed

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
)

// StreamPath is the live stream path served by the detection API.
const StreamPath = "/ws/stream"

// Endpoints are the resolved addresses of the remote detection API.
type Endpoints struct {
	Base   *url.URL
	Stream *url.URL
}

// ParseEndpoints validates the API base URL and derives the stream URL from
// it when ws is empty: http becomes ws, https becomes wss and the path is
// StreamPath. Errors wrap domain.ErrConfigurationInvalid.
func ParseEndpoints(base, ws string) (Endpoints, error) {
	b, err := parseURL(base, "http", "https")
	if err != nil {
		return Endpoints{}, fmt.Errorf("%w: API base URL: %v", domain.ErrConfigurationInvalid, err)
	}
	b.Path = strings.TrimRight(b.Path, "/")

	var s *url.URL
	if strings.TrimSpace(ws) == "" {
		s = &url.URL{Scheme: "ws", Host: b.Host, Path: StreamPath}
		if b.Scheme == "https" {
			s.Scheme = "wss"
		}
	} else if s, err = parseURL(ws, "ws", "wss"); err != nil {
		return Endpoints{}, fmt.Errorf("%w: API stream URL: %v", domain.ErrConfigurationInvalid, err)
	}

	return Endpoints{Base: b, Stream: s}, nil
}

// URL joins path onto the base URL.
func (e Endpoints) URL(path string, query url.Values) string {
	u := *e.Base
	u.Path = e.Base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func parseURL(raw string, schemes ...string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			u.Scheme = s
			return u, nil
		}
	}
	return nil, fmt.Errorf("%q: unsupported scheme %q", raw, u.Scheme)
}
