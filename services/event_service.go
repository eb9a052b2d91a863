package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"mingle/domain"
	"mingle/errors"
	"mingle/storage"
	"mingle/store"
)

const eventsCollection = "events"

// EventIndex is the full-text side of the event catalog.
type EventIndex interface {
	Index(event domain.Event) error
	Remove(eventID string) error
	Search(ctx context.Context, text string, limit int) ([]string, error)
}

type CreateEventCommand struct {
	Name        string `validate:"required"`
	Description string
	OwnerID     string       `validate:"required"`
	Place       domain.Place `validate:"required"`
	StartTime   time.Time    `validate:"required"`
	EndTime     time.Time
	Cover       []byte
	CoverName   string
}

// EventPatch carries only the fields an update touches; nil means
// "leave as is".
type EventPatch struct {
	Name        *string
	Description *string
	Place       *domain.Place
	StartTime   *time.Time
	EndTime     *time.Time
}

// EventService owns the event lifecycle: creation with cover upload,
// merge updates, the live listing and full-text search.
type EventService struct {
	log      *slog.Logger
	store    store.DocumentStore
	index    EventIndex
	blobs    storage.BlobStore
	validate *validator.Validate
	newID    func() string
}

func NewEventService(log *slog.Logger, docs store.DocumentStore, index EventIndex, blobs storage.BlobStore) *EventService {
	return &EventService{
		log:      log,
		store:    docs,
		index:    index,
		blobs:    blobs,
		validate: validator.New(),
		newID:    uuid.NewString,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, cmd CreateEventCommand) (domain.Event, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Event{}, err
	}
	if cmd.Place.Label == "" {
		return domain.Event{}, fmt.Errorf("event place needs a label")
	}
	if cmd.Place.Coord != nil && !cmd.Place.Coord.Valid() {
		return domain.Event{}, errors.ErrInvalidCoordinate
	}
	if !cmd.EndTime.IsZero() && cmd.EndTime.Before(cmd.StartTime) {
		return domain.Event{}, fmt.Errorf("event ends before it starts")
	}

	var coverURL *string
	if len(cmd.Cover) > 0 {
		blob, err := s.blobs.Upload(ctx, cmd.CoverName, cmd.Cover)
		if err != nil {
			return domain.Event{}, fmt.Errorf("uploading cover: %w", err)
		}
		coverURL = &blob.URL
	}

	id := s.newID()
	fields := map[string]any{
		"name":        cmd.Name,
		"description": cmd.Description,
		"ownerId":     cmd.OwnerID,
		"place":       placeFields(cmd.Place),
		"startTime":   cmd.StartTime,
		"createdAt":   store.ServerTimestamp,
	}
	if !cmd.EndTime.IsZero() {
		fields["endTime"] = cmd.EndTime
	}
	if coverURL != nil {
		fields["coverUrl"] = *coverURL
	}
	if err := s.store.Set(ctx, eventsCollection, id, fields, false); err != nil {
		return domain.Event{}, fmt.Errorf("creating event: %w", err)
	}

	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if err := s.index.Index(event); err != nil {
		// The event exists either way; search just won't find it yet
		s.log.Warn("Indexing event failed", "event", id, "error", err)
	}
	return event, nil
}

// UpdateEvent merges the patch into the stored event and refreshes the
// search index with the merged result.
func (s *EventService) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (domain.Event, error) {
	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Place != nil {
		if patch.Place.Coord != nil && !patch.Place.Coord.Valid() {
			return domain.Event{}, errors.ErrInvalidCoordinate
		}
		fields["place"] = placeFields(*patch.Place)
	}
	if patch.StartTime != nil {
		fields["startTime"] = *patch.StartTime
	}
	if patch.EndTime != nil {
		fields["endTime"] = *patch.EndTime
	}
	if len(fields) == 0 {
		return s.GetEvent(ctx, eventID)
	}

	if _, err := s.store.Get(ctx, eventsCollection, eventID); err != nil {
		return domain.Event{}, fmt.Errorf("updating event %s: %w", eventID, err)
	}
	if err := s.store.Set(ctx, eventsCollection, eventID, fields, true); err != nil {
		return domain.Event{}, fmt.Errorf("updating event %s: %w", eventID, err)
	}

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if err := s.index.Index(event); err != nil {
		s.log.Warn("Re-indexing event failed", "event", eventID, "error", err)
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	doc, err := s.store.Get(ctx, eventsCollection, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	return toEvent(doc), nil
}

// SearchEvents resolves the full-text hits back to stored events. Ids
// the index still knows but the store no longer has are skipped.
func (s *EventService) SearchEvents(ctx context.Context, text string, limit int) ([]domain.Event, error) {
	ids, err := s.index.Search(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}

	events := make([]domain.Event, 0, len(ids))
	for _, id := range ids {
		doc, err := s.store.Get(ctx, eventsCollection, id)
		if stderrors.Is(err, errors.ErrNotFound) {
			s.log.Debug("Indexed event no longer stored", "event", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, toEvent(doc))
	}
	return events, nil
}

// SubscribeEvents delivers the live event list, soonest first.
func (s *EventService) SubscribeEvents(ctx context.Context, onUpdate func([]domain.Event)) (store.Unsubscribe, error) {
	sink := store.SinkFunc(func(_ context.Context, snap store.Snapshot) error {
		events := lo.Map(snap.Docs, func(doc store.Document, _ int) domain.Event {
			return toEvent(doc)
		})
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].StartTime.Before(events[j].StartTime)
		})
		onUpdate(events)
		return nil
	})

	return s.store.Subscribe(ctx, store.Query{Collection: eventsCollection}, sink)
}

func placeFields(place domain.Place) map[string]any {
	fields := map[string]any{"label": place.Label}
	if place.Coord != nil {
		fields["lat"] = place.Coord.Lat
		fields["lng"] = place.Coord.Lng
	}
	return fields
}

func toEvent(doc store.Document) domain.Event {
	fields := doc.Fields
	event := domain.Event{
		ID:          doc.ID,
		Name:        str(fields, "name"),
		Description: str(fields, "description"),
		OwnerID:     str(fields, "ownerId"),
	}
	if url, ok := fields["coverUrl"].(string); ok {
		event.CoverURL = &url
	}
	if at, ok := store.TimeField(fields, "startTime"); ok {
		event.StartTime = at
	}
	if at, ok := store.TimeField(fields, "endTime"); ok {
		event.EndTime = at
	}
	if at, ok := store.TimeField(fields, "createdAt"); ok {
		event.CreatedAt = at
	}
	if place, ok := fields["place"].(map[string]any); ok {
		event.Place.Label = str(place, "label")
		lat, hasLat := place["lat"].(float64)
		lng, hasLng := place["lng"].(float64)
		if hasLat && hasLng {
			event.Place.Coord = &domain.Coordinate{Lat: lat, Lng: lng}
		}
	}
	return event
}
