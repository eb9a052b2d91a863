// Package devtools holds development-only helpers. Nothing here runs
// unless the composition root asks for it explicitly.
package devtools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mingle/domain"
	"mingle/location"
	"mingle/services"
	"mingle/store"
)

// Seeder fills an empty store with a recognizable data set: three
// profiles, two conversations with a few messages and two events.
// Event coordinates are resolved through the geocoder when it answers;
// a dead geocoder only costs the pins, never the seed.
type Seeder struct {
	log      *slog.Logger
	store    store.DocumentStore
	chat     *services.ChatService
	events   *services.EventService
	geocoder location.Geocoder
}

func NewSeeder(
	log *slog.Logger,
	docs store.DocumentStore,
	chat *services.ChatService,
	events *services.EventService,
	geocoder location.Geocoder,
) *Seeder {
	return &Seeder{log: log, store: docs, chat: chat, events: events, geocoder: geocoder}
}

func (s *Seeder) Seed(ctx context.Context) error {
	if err := s.seedProfiles(ctx); err != nil {
		return err
	}
	if err := s.seedConversations(ctx); err != nil {
		return err
	}
	return s.seedEvents(ctx)
}

func (s *Seeder) seedProfiles(ctx context.Context) error {
	profiles := map[string]map[string]any{
		"maayan": {"displayName": "Maayan", "age": 28, "location": "Tel Aviv", "interests": []string{"yoga", "hiking"}},
		"idan":   {"displayName": "Idan", "age": 31, "homeLocation": "Herzliya", "interests": []string{"board games"}},
		"noa":    {"displayName": "Noa", "age": 26, "location": "Jaffa", "interests": []string{"running", "cooking"}},
	}
	for id, fields := range profiles {
		if err := s.store.Set(ctx, "users", id, fields, true); err != nil {
			return fmt.Errorf("seeding profile %s: %w", id, err)
		}
	}
	return nil
}

func (s *Seeder) seedConversations(ctx context.Context) error {
	pairs := [][2]string{
		{"maayan", "idan"},
		{"maayan", "noa"},
	}
	openers := map[string][]string{
		"idan_maayan": {"Hey! Saw you at the yoga event", "It was great, are you going next week?"},
		"maayan_noa":  {"Up for a run on Saturday?"},
	}

	for _, pair := range pairs {
		conversationID, err := domain.DeriveConversationID(pair[0], pair[1])
		if err != nil {
			return err
		}
		if err := s.chat.EnsureMatch(ctx, conversationID, pair[0], pair[1]); err != nil {
			return fmt.Errorf("seeding match %s: %w", conversationID, err)
		}
		sender := pair[0]
		for _, text := range openers[string(conversationID)] {
			if _, err := s.chat.SendMessage(ctx, services.SendMessageCommand{
				ChatRoom: conversationID,
				SenderID: sender,
				Text:     text,
			}); err != nil {
				return fmt.Errorf("seeding message in %s: %w", conversationID, err)
			}
			sender = other(pair, sender)
		}
	}
	return nil
}

func (s *Seeder) seedEvents(ctx context.Context) error {
	samples := []services.CreateEventCommand{
		{
			Name:        "Sunset Yoga",
			Description: "Beginner friendly session on the beach",
			OwnerID:     "maayan",
			Place:       domain.Place{Label: "Gordon Beach, Tel Aviv"},
			StartTime:   nextWeekday(time.Friday, 18, 30),
		},
		{
			Name:        "Board Games Night",
			Description: "Catan, Codenames and whatever you bring",
			OwnerID:     "idan",
			Place:       domain.Place{Label: "Dizengoff Center, Tel Aviv"},
			StartTime:   nextWeekday(time.Tuesday, 20, 0),
		},
	}

	for i := range samples {
		samples[i].Place.Coord = s.resolve(ctx, samples[i].Place.Label)
		if _, err := s.events.CreateEvent(ctx, samples[i]); err != nil {
			return fmt.Errorf("seeding event %q: %w", samples[i].Name, err)
		}
	}
	return nil
}

func (s *Seeder) resolve(ctx context.Context, label string) *domain.Coordinate {
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	suggestions, err := s.geocoder.Search(lookupCtx, label, 1)
	if err != nil || len(suggestions) == 0 {
		s.log.Debug("Seed geocoding skipped", "label", label, "error", err)
		return nil
	}
	coord := suggestions[0].Coord
	return &coord
}

func other(pair [2]string, current string) string {
	if current == pair[0] {
		return pair[1]
	}
	return pair[0]
}

func nextWeekday(day time.Weekday, hour, minute int) time.Time {
	now := time.Now().UTC()
	days := (int(day) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	target := now.AddDate(0, 0, days)
	return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, time.UTC)
}
