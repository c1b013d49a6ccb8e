package feed

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
)

func TestParseEndpoints_DerivesStreamURL(t *testing.T) {
	tests := []struct {
		base       string
		wantBase   string
		wantStream string
	}{
		{"http://localhost:8000", "http://localhost:8000", "ws://localhost:8000/ws/stream"},
		{"https://api.example.com/", "https://api.example.com", "wss://api.example.com/ws/stream"},
		{"HTTP://api.example.com/v1/", "http://api.example.com/v1", "ws://api.example.com/ws/stream"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			ep, err := ParseEndpoints(tt.base, "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, ep.Base.String())
			assert.Equal(t, tt.wantStream, ep.Stream.String())
		})
	}
}

func TestParseEndpoints_ExplicitStreamURL(t *testing.T) {
	ep, err := ParseEndpoints("http://localhost:8000", "wss://stream.example.com/live")
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.example.com/live", ep.Stream.String())
}

func TestParseEndpoints_Invalid(t *testing.T) {
	tests := []struct {
		name string
		base string
		ws   string
	}{
		{"empty base", "", ""},
		{"no scheme", "localhost:8000", ""},
		{"unsupported scheme", "ftp://example.com", ""},
		{"no host", "http://", ""},
		{"unparseable", "http://[::1", ""},
		{"stream with http scheme", "http://localhost:8000", "http://localhost:8000/ws/stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEndpoints(tt.base, tt.ws)
			require.ErrorIs(t, err, domain.ErrConfigurationInvalid)
		})
	}
}

func TestEndpointsURL(t *testing.T) {
	ep, err := ParseEndpoints("http://localhost:8000/api", "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/detections?hours=24", ep.URL("/detections", url.Values{"hours": {"24"}}))
	assert.Equal(t, "http://localhost:8000/api/health", ep.URL("/health", nil))
}
