package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend for a name it does not hold.
var ErrNotFound = errors.New("store: not found")

// Backend is a flat namespace of opaque blobs. Implementations must make Put
// atomic with respect to Get: a reader sees the old blob or the new one.
type Backend interface {
	Put(ctx context.Context, name string, data []byte) error
	// Get returns ErrNotFound when name is absent.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete succeeds when name is already absent.
	Delete(ctx context.Context, name string) error
	// List returns the names starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
