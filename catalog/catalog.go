// Package catalog maintains the full-text index over events. The
// document store stays the source of truth; the index only maps query
// text back to event ids and is rebuilt from the store on reseed.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blugelabs/bluge"

	"mingle/domain"
)

type Catalog struct {
	mu     sync.Mutex
	log    *slog.Logger
	writer *bluge.Writer
}

func NewCatalog(path string, log *slog.Logger) (*Catalog, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("opening catalog index: %w", err)
	}
	return &Catalog{log: log, writer: writer}, nil
}

// Index adds or replaces one event in the catalog. Writes are keyed by
// event id, so re-indexing after an update never duplicates.
func (c *Catalog) Index(event domain.Event) error {
	doc := bluge.NewDocument(event.ID).
		AddField(bluge.NewTextField("name", event.Name).StoreValue()).
		AddField(bluge.NewTextField("description", event.Description)).
		AddField(bluge.NewTextField("place", event.Place.Label))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("indexing event %s: %w", event.ID, err)
	}
	return nil
}

func (c *Catalog) Remove(eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writer.Delete(bluge.Identifier(eventID))
}

// Search returns the ids of events matching the text, best first. Name,
// description and place label are all searched.
func (c *Catalog) Search(ctx context.Context, text string, limit int) ([]string, error) {
	reader, err := c.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening catalog reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			c.log.Warn("Closing catalog reader failed", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(text).SetField("name")).
		AddShould(bluge.NewMatchQuery(text).SetField("description")).
		AddShould(bluge.NewMatchQuery(text).SetField("place"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}

	var ids []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("iterating catalog results: %w", err)
		}
		if match == nil {
			return ids, nil
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
}

func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writer.Close()
}
