package domain

import (
	"strconv"
	"strings"

	"mingle/errors"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Suggestion is one ranked candidate returned by forward geocoding.
type Suggestion struct {
	Label      string
	RawAddress string
	Coord      Coordinate
}

// ResolutionStatus tracks the lifecycle of one location lookup.
type ResolutionStatus string

const (
	ResolutionIdle      ResolutionStatus = "idle"
	ResolutionSearching ResolutionStatus = "searching"
	ResolutionSuccess   ResolutionStatus = "success"
	ResolutionNotFound  ResolutionStatus = "not-found"
	ResolutionError     ResolutionStatus = "error"
)

// Valid reports whether the coordinate is within WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// ParseCoordinate interprets free text as a literal "lat, lng" pair.
// A single number or any malformed pair is not an error: the caller
// falls through to a forward text search instead. Out-of-range pairs
// are reported so they are not silently geocoded as text.
func ParseCoordinate(text string) (Coordinate, bool, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return Coordinate{}, false, nil
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil {
		return Coordinate{}, false, nil
	}
	coord := Coordinate{Lat: lat, Lng: lng}
	if !coord.Valid() {
		return Coordinate{}, false, errors.ErrInvalidCoordinate
	}
	return coord, true, nil
}
