package domain

import (
	"context"
)

// BlobInfo describes one stored object as returned by a listing.
type BlobInfo struct {
	Pathname string `json:"pathname"`
	URL      string `json:"url"`
}

// BlobStore is an opaque key/value object store. Objects are addressed by
// the URL returned from Put or List.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Get(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
}

// EventLookup finds catalog events by id.
type EventLookup interface {
	Find(id string) (Event, bool)
}
