package domain

import "time"

// Event is a meetup record created by a user. Place holds the accepted
// (label, coordinate) pair produced by the location resolver; only the
// final value is persisted, never intermediate lookups.
type Event struct {
	ID          string
	Name        string
	Description string
	Place       Place
	StartTime   time.Time
	EndTime     time.Time
	CoverURL    *string
	OwnerID     string
	CreatedAt   time.Time
}

// Place is a resolved location attached to an event.
type Place struct {
	Label string
	Coord *Coordinate
}
