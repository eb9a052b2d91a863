//go:generate go run go.uber.org/mock/mockgen -source=geocoder.go -destination=../mocks/mock_geocoder.go -package=mocks

// Package location turns free-text or pinned-coordinate input into a
// resolved (label, coordinate) pair, tolerating slow and out-of-order
// geocoding responses.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mingle/domain"
	"mingle/errors"
)

// Geocoder is the plain request/response geocoding collaborator.
// Debounce and cancellation are the caller's job, not the service's.
type Geocoder interface {
	Search(ctx context.Context, text string, limit int) ([]domain.Suggestion, error)
	Reverse(ctx context.Context, coord domain.Coordinate) (domain.Suggestion, error)
}

// NominatimClient talks to a Nominatim-compatible HTTP endpoint.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error"`
}

// Search forward-geocodes free text into ranked suggestions.
func (c *NominatimClient) Search(ctx context.Context, text string, limit int) ([]domain.Suggestion, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))

	var places []nominatimPlace
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return nil, err
	}

	suggestions := make([]domain.Suggestion, 0, len(places))
	for _, place := range places {
		suggestion, err := toSuggestion(place)
		if err != nil {
			continue // skip unparseable rows, keep the rest
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

// Reverse resolves a coordinate into a human-readable label.
func (c *NominatimClient) Reverse(ctx context.Context, coord domain.Coordinate) (domain.Suggestion, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coord.Lng, 'f', -1, 64))
	params.Set("format", "jsonv2")

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", params, &place); err != nil {
		return domain.Suggestion{}, err
	}
	if place.Error != "" || place.DisplayName == "" {
		return domain.Suggestion{}, errors.ErrNotFound
	}
	return toSuggestion(place)
}

func (c *NominatimClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toSuggestion(place nominatimPlace) (domain.Suggestion, error) {
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return domain.Suggestion{}, err
	}
	lng, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return domain.Suggestion{}, err
	}
	label := place.Name
	if label == "" {
		label = place.DisplayName
	}
	return domain.Suggestion{
		Label:      label,
		RawAddress: place.DisplayName,
		Coord:      domain.Coordinate{Lat: lat, Lng: lng},
	}, nil
}
