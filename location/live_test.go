package location

import (
	"context"
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/require"

	"mingle/domain"
)

// liveConfig drives the opt-in test against a real geocoding endpoint.
// Left unset, the test is skipped; CI never hits the network.
type liveConfig struct {
	GeocoderURL string        `envconfig:"LIVE_GEOCODER_URL"`
	UserAgent   string        `envconfig:"LIVE_GEOCODER_USER_AGENT" default:"mingle-live-test"`
	Timeout     time.Duration `envconfig:"LIVE_GEOCODER_TIMEOUT" default:"10s"`
}

func Test_Live_Reverse_Geocoding(t *testing.T) {
	var cfg liveConfig
	require.NoError(t, envconfig.Process("", &cfg))
	if cfg.GeocoderURL == "" {
		t.Skip("LIVE_GEOCODER_URL not set")
	}
	req := require.New(t)

	client := NewNominatimClient(cfg.GeocoderURL, cfg.UserAgent, cfg.Timeout)
	suggestion, err := client.Reverse(context.Background(), domain.Coordinate{Lat: 32.0853, Lng: 34.7818})
	req.NoError(err)
	req.NotEmpty(suggestion.Label)
}
