package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mingle/domain"
	"mingle/errors"
)

func Test_Search_Decodes_Ranked_Suggestions(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/search", r.URL.Path)
		req.Equal("Dizengoff", r.URL.Query().Get("q"))
		req.Equal("jsonv2", r.URL.Query().Get("format"))
		req.Equal("3", r.URL.Query().Get("limit"))
		req.NotEmpty(r.Header.Get("User-Agent"))
		w.Write([]byte(`[
			{"display_name":"Dizengoff Square, Tel Aviv, Israel","name":"Dizengoff Square","lat":"32.0809","lon":"34.7740"},
			{"display_name":"Dizengoff Center, Tel Aviv, Israel","name":"Dizengoff Center","lat":"32.0751","lon":"34.7752"}
		]`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "mingle-test", time.Second)
	suggestions, err := client.Search(context.Background(), "Dizengoff", 3)
	req.NoError(err)
	req.Len(suggestions, 2)
	req.Equal("Dizengoff Square", suggestions[0].Label)
	req.Equal("Dizengoff Square, Tel Aviv, Israel", suggestions[0].RawAddress)
	req.Equal(domain.Coordinate{Lat: 32.0809, Lng: 34.7740}, suggestions[0].Coord)
}

func Test_Reverse_Resolves_Point(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/reverse", r.URL.Path)
		req.Equal("32.0853", r.URL.Query().Get("lat"))
		req.Equal("34.7818", r.URL.Query().Get("lon"))
		w.Write([]byte(`{"display_name":"Tel Aviv-Yafo, Israel","name":"Tel Aviv-Yafo","lat":"32.0853","lon":"34.7818"}`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "mingle-test", time.Second)
	suggestion, err := client.Reverse(context.Background(), domain.Coordinate{Lat: 32.0853, Lng: 34.7818})
	req.NoError(err)
	req.Equal("Tel Aviv-Yafo", suggestion.Label)
}

func Test_Reverse_Maps_Unable_To_Geocode_To_NotFound(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "mingle-test", time.Second)
	_, err := client.Reverse(context.Background(), domain.Coordinate{Lat: 0, Lng: 0})
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Search_Surfaces_Server_Errors(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "mingle-test", time.Second)
	_, err := client.Search(context.Background(), "anywhere", 5)
	req.Error(err)
}

func Test_Search_Skips_Unparseable_Rows(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"display_name":"Broken","lat":"not-a-number","lon":"34.77"},
			{"display_name":"Fine","name":"Fine","lat":"32.08","lon":"34.77"}
		]`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL, "mingle-test", time.Second)
	suggestions, err := client.Search(context.Background(), "x", 5)
	req.NoError(err)
	req.Len(suggestions, 1)
	req.Equal("Fine", suggestions[0].Label)
}
