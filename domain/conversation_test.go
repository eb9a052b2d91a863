package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mingle/errors"
)

func Test_Derive_Is_Order_Independent(t *testing.T) {
	req := require.New(t)
	pairs := [][2]string{
		{"u1", "u2"},
		{"alice", "bob"},
		{"Zoe", "adam"}, // upper case sorts before lower case
		{"9f3c", "0a1b"},
	}
	for _, pair := range pairs {
		ab, err := DeriveConversationID(pair[0], pair[1])
		req.NoError(err)
		ba, err := DeriveConversationID(pair[1], pair[0])
		req.NoError(err)
		req.Equal(ab, ba)
	}
}

func Test_Derive_Puts_Lower_Id_First(t *testing.T) {
	req := require.New(t)
	id, err := DeriveConversationID("u2", "u1")
	req.NoError(err)
	req.Equal(ConversationID("u1_u2"), id)
}

func Test_Derive_Rejects_Self_Conversation(t *testing.T) {
	req := require.New(t)
	_, err := DeriveConversationID("u1", "u1")
	req.ErrorIs(err, errors.ErrSelfConversation)
}

func Test_Derive_Rejects_Empty_Participant(t *testing.T) {
	req := require.New(t)
	_, err := DeriveConversationID("", "u2")
	req.ErrorIs(err, errors.ErrEmptyParticipant)
	_, err = DeriveConversationID("u1", "")
	req.ErrorIs(err, errors.ErrEmptyParticipant)
}

func Test_Includes_And_Participants(t *testing.T) {
	req := require.New(t)
	id, err := DeriveConversationID("u1", "u2")
	req.NoError(err)
	req.True(id.Includes("u1"))
	req.True(id.Includes("u2"))
	req.False(id.Includes("u3"))
	req.False(id.Includes(""))

	first, second := id.Participants()
	req.Equal("u1", first)
	req.Equal("u2", second)
}
