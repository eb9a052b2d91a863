// Package domain contains core concepts of the matching and chat system.
// Records are plain values; rules that need no I/O live here.
package domain

import (
	"strings"

	"mingle/errors"
)

// ConversationID is the canonical key of a two-party chat.
// It is derived, never stored on its own, and both participants
// compute the same value without coordination.
type ConversationID string

// DeriveConversationID builds the canonical id for a pair of users.
// The lower identifier (lexicographic) always comes first, so
// DeriveConversationID(a, b) == DeriveConversationID(b, a).
// Self-conversations are a caller contract violation.
func DeriveConversationID(userA, userB string) (ConversationID, error) {
	if userA == "" || userB == "" {
		return "", errors.ErrEmptyParticipant
	}
	if userA == userB {
		return "", errors.ErrSelfConversation
	}
	if userA > userB {
		userA, userB = userB, userA
	}
	return ConversationID(userA + "_" + userB), nil
}

// Includes reports whether userID is one of the two participants
// encoded in the conversation id.
func (c ConversationID) Includes(userID string) bool {
	if userID == "" {
		return false
	}
	s := string(c)
	return strings.HasPrefix(s, userID+"_") || strings.HasSuffix(s, "_"+userID)
}

// Participants returns the two user ids in canonical order.
func (c ConversationID) Participants() (string, string) {
	i := strings.Index(string(c), "_")
	if i < 0 {
		return string(c), ""
	}
	return string(c)[:i], string(c)[i+1:]
}
