package location

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mingle/domain"
)

// State is what a location picker renders: the current status, the
// resolved label/coordinate and any pending suggestions.
type State struct {
	Status      domain.ResolutionStatus
	Label       string
	Coord       *domain.Coordinate
	Suggestions []domain.Suggestion
}

// Listener receives every state change. It is invoked under the
// resolver lock and must not call back into the resolver.
type Listener func(State)

// Resolver drives the location-picker flow: debounced forward search
// while the user types, immediate reverse lookup on pin moves, and
// last-request-wins cancellation so a stale response can never
// overwrite a newer input's result.
type Resolver struct {
	mu       sync.Mutex
	log      *slog.Logger
	geocoder Geocoder
	debounce time.Duration
	limit    int
	listener Listener

	state          State
	skipNextSearch bool
	timer          *time.Timer
	cancelInFlight context.CancelFunc
	generation     uint64
	closed         bool
}

func NewResolver(log *slog.Logger, geocoder Geocoder, debounce time.Duration, limit int, listener Listener) *Resolver {
	return &Resolver{
		log:      log,
		geocoder: geocoder,
		debounce: debounce,
		limit:    limit,
		listener: listener,
		state:    State{Status: domain.ResolutionIdle},
	}
}

// OnTextChanged handles one keystroke's worth of input. A literal
// "lat, lng" pair short-circuits to a reverse lookup; anything else
// waits for the debounce delay before a forward search fires. The
// one-shot skip flag swallows the text change produced by a reverse
// lookup filling the input, preventing a feedback loop.
func (r *Resolver) OnTextChanged(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.skipNextSearch {
		r.skipNextSearch = false
		return
	}

	r.cancelPending()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		r.state = State{Status: domain.ResolutionIdle}
		r.notify()
		return
	}

	// Out-of-range pairs are treated like malformed ones and fall
	// through to a text search.
	if coord, ok, _ := domain.ParseCoordinate(trimmed); ok {
		r.startReverse(coord, false)
		return
	}

	generation := r.generation
	r.timer = time.AfterFunc(r.debounce, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || generation != r.generation {
			return
		}
		r.startForward(trimmed)
	})
}

// OnPinMoved reverse-geocodes a dropped pin right away; a pin drop is
// a discrete action, not continuous typing, so no debounce applies.
func (r *Resolver) OnPinMoved(coord domain.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.cancelPending()
	r.startReverse(coord, true)
}

// OnSuggestionChosen adopts one suggestion as the resolved value and
// cancels whatever lookup is still in flight.
func (r *Resolver) OnSuggestionChosen(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || index < 0 || index >= len(r.state.Suggestions) {
		return
	}
	r.cancelPending()

	chosen := r.state.Suggestions[index]
	coord := chosen.Coord
	r.state = State{
		Status: domain.ResolutionSuccess,
		Label:  chosen.Label,
		Coord:  &coord,
	}
	r.notify()
}

// State returns a copy of the current resolver state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close cancels any pending work. No listener fires after Close.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cancelPending()
}

// cancelPending invalidates every outstanding timer and lookup.
// Bumping the generation makes late responses no-ops. Callers hold
// the lock.
func (r *Resolver) cancelPending() {
	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.cancelInFlight != nil {
		r.cancelInFlight()
		r.cancelInFlight = nil
	}
}

// startReverse launches a reverse lookup for the coordinate. With
// fillText set, a successful lookup replaces the input text, so the
// next text-change event is swallowed. Callers hold the lock.
func (r *Resolver) startReverse(coord domain.Coordinate, fillText bool) {
	generation := r.generation
	ctx, cancel := context.WithCancel(context.Background())
	r.cancelInFlight = cancel

	r.state.Status = domain.ResolutionSearching
	r.state.Suggestions = nil
	r.notify()

	go func() {
		suggestion, err := r.geocoder.Reverse(ctx, coord)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || generation != r.generation {
			return // superseded by newer input
		}
		r.cancelInFlight = nil

		if err != nil {
			// A failed lookup reports an error status but leaves any
			// previously resolved label untouched.
			r.state.Status = domain.ResolutionError
			r.log.Warn("Reverse geocoding failed", "lat", coord.Lat, "lng", coord.Lng, "error", err)
			r.notify()
			return
		}

		r.state.Status = domain.ResolutionSuccess
		r.state.Label = suggestion.Label
		r.state.Coord = &domain.Coordinate{Lat: coord.Lat, Lng: coord.Lng}
		if fillText {
			r.skipNextSearch = true
		}
		r.notify()
	}()
}

// startForward launches a forward search for the typed text.
// Callers hold the lock.
func (r *Resolver) startForward(text string) {
	generation := r.generation
	ctx, cancel := context.WithCancel(context.Background())
	r.cancelInFlight = cancel

	r.state.Status = domain.ResolutionSearching
	r.notify()

	go func() {
		suggestions, err := r.geocoder.Search(ctx, text, r.limit)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || generation != r.generation {
			return
		}
		r.cancelInFlight = nil

		switch {
		case err != nil:
			r.state.Status = domain.ResolutionError
			r.log.Warn("Forward geocoding failed", "query", text, "error", err)
		case len(suggestions) == 0:
			r.state.Status = domain.ResolutionNotFound
			r.state.Suggestions = nil
		default:
			r.state.Status = domain.ResolutionSuccess
			r.state.Suggestions = suggestions
		}
		r.notify()
	}()
}

func (r *Resolver) notify() {
	if r.listener != nil {
		r.listener(r.state)
	}
}
