package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when a storage key does not resolve to an object.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving, reading, listing and deleting binary objects.
// Objects are grouped by namespace (the owning user); keys returned by Save are opaque.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	List(ctx context.Context, namespace string) ([]Object, error)
}

// Object describes a stored blob.
type Object struct {
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"sizeBytes"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ReadAll opens the key and reads it fully, capped at limit bytes when limit > 0.
func ReadAll(ctx context.Context, store ObjectStore, storageKey string, limit int64) ([]byte, error) {
	if strings.TrimSpace(storageKey) == "" {
		return nil, fmt.Errorf("read object: empty key: %w", ErrNotFound)
	}
	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if limit > 0 {
		r = io.LimitReader(body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object key=%s: %w", storageKey, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("read object key=%s: exceeds %d bytes", storageKey, limit)
	}
	return data, nil
}

// DisplayName strips the random prefix Save adds to stored file names.
func DisplayName(storedName string) string {
	if idx := strings.IndexByte(storedName, '_'); idx == 32 {
		return storedName[idx+1:]
	}
	return storedName
}
