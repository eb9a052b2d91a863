// Package services wires the domain rules to the document store and
// the other collaborators. All coordination logic here runs on each
// client independently and must stay safe when two clients execute it
// concurrently.
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"mingle/domain"
	"mingle/errors"
	"mingle/moderation"
	"mingle/store"
)

const (
	matchesCollection  = "matches"
	messagesCollection = "messages"
	usersCollection    = "users"
)

type SendMessageCommand struct {
	ChatRoom domain.ConversationID `validate:"required"`
	SenderID string                `validate:"required"`
	Text     string
}

// ChatService owns the messaging core: conversation identity, the
// match registry and the live message stream.
type ChatService struct {
	log       *slog.Logger
	store     store.DocumentStore
	validate  *validator.Validate
	moderator *moderation.Moderator
	now       func() time.Time
}

func NewChatService(log *slog.Logger, docs store.DocumentStore, moderator *moderation.Moderator) *ChatService {
	return &ChatService{
		log:       log,
		store:     docs,
		validate:  validator.New(),
		moderator: moderator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureMatch lazily creates the match record for a conversation, or
// refreshes it when it already exists. The write is keyed by the
// deterministic conversation id and only merges the touched fields,
// so calling it redundantly or concurrently from both participants'
// clients cannot clobber counters or history.
func (s *ChatService) EnsureMatch(ctx context.Context, conversationID domain.ConversationID, userA, userB string) error {
	derived, err := domain.DeriveConversationID(userA, userB)
	if err != nil {
		return err
	}
	if derived != conversationID {
		return fmt.Errorf("conversation id %q does not belong to %q and %q", conversationID, userA, userB)
	}

	_, err = s.store.Get(ctx, matchesCollection, string(conversationID))
	switch {
	case err == nil:
		// Existing match: only refresh activity, never touch
		// counters, names or history
		return s.store.Set(ctx, matchesCollection, string(conversationID), map[string]any{
			"lastMessageAt": store.ServerTimestamp,
			"status":        string(domain.MatchActive),
		}, true)
	case stderrors.Is(err, errors.ErrNotFound):
		user1, user2 := conversationID.Participants()
		return s.store.Set(ctx, matchesCollection, string(conversationID), map[string]any{
			"user1Id":             user1,
			"user2Id":             user2,
			"participants":        []string{userA, userB},
			"createdAt":           store.ServerTimestamp,
			"lastMessageAt":       store.ServerTimestamp,
			"lastMessage":         nil,
			"lastMessageSenderId": "",
			"unreadCount":         map[string]any{userA: 0, userB: 0},
			"status":              string(domain.MatchActive),
		}, true)
	default:
		return fmt.Errorf("reading match %s: %w", conversationID, err)
	}
}

// SendMessage appends one immutable message to the conversation.
// Invalid input is rejected before any store call, so a failed send
// leaves the caller's draft untouched and retryable. The match-record
// refresh afterwards is best effort and never fails the send.
func (s *ChatService) SendMessage(ctx context.Context, cmd SendMessageCommand) (string, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(cmd.Text)
	if trimmed == "" {
		return "", errors.ErrEmptyMessage
	}
	if !cmd.ChatRoom.Includes(cmd.SenderID) {
		return "", errors.ErrUnknownSender
	}

	text := s.moderator.Censor(trimmed)

	id, err := s.store.Add(ctx, messagesCollection, map[string]any{
		"chatRoomId": string(cmd.ChatRoom),
		"senderId":   cmd.SenderID,
		"text":       text,
		"lang":       moderation.DetectLang(text),
		"timestamp":  store.ServerTimestamp,
		"isRead":     false,
	})
	if err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}

	s.recordActivity(ctx, cmd.ChatRoom, cmd.SenderID, text)
	return id, nil
}

// recordActivity refreshes the match record after a successful send.
// Failures are logged and swallowed: the message is already delivered
// and must never be reported as failed because of this write.
func (s *ChatService) recordActivity(ctx context.Context, conversationID domain.ConversationID, senderID, text string) {
	err := s.store.Set(ctx, matchesCollection, string(conversationID), map[string]any{
		"lastMessageAt":       store.ServerTimestamp,
		"lastMessage":         text,
		"lastMessageSenderId": senderID,
		"status":              string(domain.MatchActive),
	}, true)
	if err != nil {
		s.log.Warn("Match activity update failed", "conversation", conversationID, "error", err)
	}
}

// SubscribeMessages establishes the live, time-ordered message view
// for one conversation. The ordered query needs a server-side index;
// when the store refuses it the subscription degrades to an unordered
// query and sorting happens here instead. Either way the delivered
// list is sorted ascending by timestamp with pending timestamps
// treated as "now" and insertion order as the tiebreak.
func (s *ChatService) SubscribeMessages(ctx context.Context, conversationID domain.ConversationID, onUpdate func([]domain.Message)) (store.Unsubscribe, error) {
	sink := store.SinkFunc(func(_ context.Context, snap store.Snapshot) error {
		messages := lo.Map(snap.Docs, func(doc store.Document, _ int) domain.Message {
			return toMessage(doc)
		})
		domain.SortMessages(messages, s.now())
		onUpdate(messages)
		return nil
	})

	query := store.Query{
		Collection: messagesCollection,
		Equals:     map[string]any{"chatRoomId": string(conversationID)},
		OrderBy:    "timestamp",
	}
	unsubscribe, err := s.store.Subscribe(ctx, query, sink)
	if stderrors.Is(err, errors.ErrIndexRequired) {
		s.log.Warn("Ordered message query unavailable, sorting client-side", "conversation", conversationID)
		query.OrderBy = ""
		unsubscribe, err = s.store.Subscribe(ctx, query, sink)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", conversationID, err)
	}
	return unsubscribe, nil
}

// SubscribeMatches delivers the live list of a user's matches, most
// recent activity first.
func (s *ChatService) SubscribeMatches(ctx context.Context, userID string, onUpdate func([]domain.Match)) (store.Unsubscribe, error) {
	sink := store.SinkFunc(func(_ context.Context, snap store.Snapshot) error {
		matches := lo.Map(snap.Docs, func(doc store.Document, _ int) domain.Match {
			return toMatch(doc)
		})
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].LastMessageAt.After(matches[j].LastMessageAt)
		})
		onUpdate(matches)
		return nil
	})

	return s.store.Subscribe(ctx, store.Query{
		Collection:    matchesCollection,
		ArrayContains: map[string]string{"participants": userID},
	}, sink)
}

// GetProfile reads one user record. Legacy field names are resolved
// here so callers only ever see the canonical shape.
func (s *ChatService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	doc, err := s.store.Get(ctx, usersCollection, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.NormalizeProfile(userID, doc.Fields), nil
}

func toMessage(doc store.Document) domain.Message {
	fields := doc.Fields
	m := domain.Message{
		ID:       doc.ID,
		Seq:      doc.Seq,
		ChatRoom: domain.ConversationID(str(fields, "chatRoomId")),
		SenderID: str(fields, "senderId"),
		Text:     str(fields, "text"),
		Lang:     str(fields, "lang"),
	}
	if isRead, ok := fields["isRead"].(bool); ok {
		m.IsRead = isRead
	}
	if at, ok := store.TimeField(fields, "timestamp"); ok {
		m.SentAt = &at
	}
	return m
}

func toMatch(doc store.Document) domain.Match {
	fields := doc.Fields
	m := domain.Match{
		ID:                  domain.ConversationID(doc.ID),
		User1ID:             str(fields, "user1Id"),
		User2ID:             str(fields, "user2Id"),
		Participants:        strSlice(fields, "participants"),
		LastMessageSenderID: str(fields, "lastMessageSenderId"),
		Status:              domain.MatchStatus(str(fields, "status")),
		UnreadCount:         make(map[string]int),
	}
	if text, ok := fields["lastMessage"].(string); ok {
		m.LastMessage = &text
	}
	if at, ok := store.TimeField(fields, "createdAt"); ok {
		m.CreatedAt = at
	}
	if at, ok := store.TimeField(fields, "lastMessageAt"); ok {
		m.LastMessageAt = at
	}
	if counts, ok := fields["unreadCount"].(map[string]any); ok {
		for user, count := range counts {
			if n, isNum := count.(float64); isNum {
				m.UnreadCount[user] = int(n)
			}
		}
	}
	return m
}

func str(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func strSlice(fields map[string]any, key string) []string {
	switch items := fields[key].(type) {
	case []string:
		return items
	case []any:
		var out []string
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
