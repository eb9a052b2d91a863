package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"mingle/domain"
)

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func Test_Search_Matches_Name_Description_And_Place(t *testing.T) {
	req := require.New(t)
	c := openCatalog(t)

	req.NoError(c.Index(domain.Event{
		ID:          "evt-1",
		Name:        "Sunset Yoga",
		Description: "Beginner friendly session on the beach",
		Place:       domain.Place{Label: "Gordon Beach, Tel Aviv"},
	}))
	req.NoError(c.Index(domain.Event{
		ID:          "evt-2",
		Name:        "Board Games Night",
		Description: "Catan and friends",
		Place:       domain.Place{Label: "Dizengoff Center"},
	}))

	ids, err := c.Search(context.Background(), "yoga", 10)
	req.NoError(err)
	req.Equal([]string{"evt-1"}, ids)

	ids, err = c.Search(context.Background(), "dizengoff", 10)
	req.NoError(err)
	req.Equal([]string{"evt-2"}, ids)

	ids, err = c.Search(context.Background(), "beach", 10)
	req.NoError(err)
	req.Equal([]string{"evt-1"}, ids)
}

func Test_Reindexing_Replaces_Instead_Of_Duplicating(t *testing.T) {
	req := require.New(t)
	c := openCatalog(t)

	event := domain.Event{ID: "evt-1", Name: "Morning Run"}
	req.NoError(c.Index(event))

	event.Name = "Evening Run"
	req.NoError(c.Index(event))

	ids, err := c.Search(context.Background(), "run", 10)
	req.NoError(err)
	req.Equal([]string{"evt-1"}, ids)

	ids, err = c.Search(context.Background(), "morning", 10)
	req.NoError(err)
	req.Empty(ids)
}

func Test_Remove_Drops_The_Event(t *testing.T) {
	req := require.New(t)
	c := openCatalog(t)

	req.NoError(c.Index(domain.Event{ID: "evt-1", Name: "Picnic"}))
	req.NoError(c.Remove("evt-1"))

	ids, err := c.Search(context.Background(), "picnic", 10)
	req.NoError(err)
	req.Empty(ids)
}

func Test_Search_Honours_The_Limit(t *testing.T) {
	req := require.New(t)
	c := openCatalog(t)

	req.NoError(c.Index(domain.Event{ID: "evt-1", Name: "Run club north"}))
	req.NoError(c.Index(domain.Event{ID: "evt-2", Name: "Run club south"}))
	req.NoError(c.Index(domain.Event{ID: "evt-3", Name: "Run club center"}))

	ids, err := c.Search(context.Background(), "run", 2)
	req.NoError(err)
	req.Len(ids, 2)
}
