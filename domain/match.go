package domain

import "time"

type MatchStatus string

const (
	MatchActive   MatchStatus = "active"
	MatchArchived MatchStatus = "archived"
)

// Match summarizes a two-party relationship. Exactly one record exists
// per conversation id; both clients upsert it with merge writes only,
// so concurrent writers never clobber fields they do not touch.
type Match struct {
	ID                  ConversationID
	User1ID             string // user1ID <= user2ID, same order as the id
	User2ID             string
	Participants        []string
	CreatedAt           time.Time
	LastMessageAt       time.Time
	LastMessage         *string
	LastMessageSenderID string
	UnreadCount         map[string]int
	Status              MatchStatus
}
