// Package blob provides the object storage abstraction used by the pipeline.
//
// The backing store is only eventually consistent: a Put may not be visible
// to an immediately following List or Get. Callers that need to mask that
// window retry at a higher level (see internal/jobstore); this package never
// retries on its own.
package blob

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when the storage backend cannot be reached
// or answers with a server error. It wraps the underlying transport error.
var ErrStoreUnavailable = errors.New("blob store unavailable")

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("blob not found")

// Object describes a stored blob as returned by List.
type Object struct {
	Key string `json:"pathname"`
	URL string `json:"url"`
}

// Store is the capability set the pipeline needs from object storage.
type Store interface {
	// Put writes data under key and returns the object's URL.
	// Existing objects are overwritten whole; there are no partial writes.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// List returns all objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Get reads an object's content by its URL.
	Get(ctx context.Context, url string) ([]byte, error)

	// Delete removes an object by its URL.
	Delete(ctx context.Context, url string) error
}
