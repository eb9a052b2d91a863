//go:generate go run go.uber.org/mock/mockgen -source=blob.go -destination=../mocks/mock_blob_store.go -package=mocks
// Package storage keeps binary attachments (event covers, avatars)
// outside the document store. Documents only carry the returned URL.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"mingle/errors"
)

// Blob describes one stored attachment. URL is what documents persist;
// it stays valid across restarts because the name embeds the id.
type Blob struct {
	Name        string
	ContentType string
	Size        int64
	URL         string
}

type BlobStore interface {
	Upload(ctx context.Context, filename string, data []byte) (Blob, error)
	Open(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// DiskBlobStore lays blobs flat under one root directory. The content
// type is sniffed from the bytes, never trusted from the filename.
type DiskBlobStore struct {
	root    string
	baseURL string
	log     *slog.Logger
}

func NewDiskBlobStore(root, baseURL string, log *slog.Logger) (*DiskBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &DiskBlobStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}, nil
}

func (s *DiskBlobStore) Upload(ctx context.Context, filename string, data []byte) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}

	detected := mimetype.Detect(data)
	name := uuid.NewString() + detected.Extension()

	path := filepath.Join(s.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Blob{}, fmt.Errorf("writing blob %s: %w", name, err)
	}

	s.log.Debug("Blob stored", "name", name, "original", filename, "type", detected.String(), "size", len(data))
	return Blob{
		Name:        name,
		ContentType: detected.String(),
		Size:        int64(len(data)),
		URL:         s.baseURL + "/" + name,
	}, nil
}

func (s *DiskBlobStore) Open(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Reject anything that could escape the root
	if name != filepath.Base(name) {
		return nil, errors.ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	return data, err
}

func (s *DiskBlobStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name != filepath.Base(name) {
		return errors.ErrNotFound
	}
	err := os.Remove(filepath.Join(s.root, name))
	if os.IsNotExist(err) {
		return errors.ErrNotFound
	}
	return err
}
