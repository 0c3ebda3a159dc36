package storage

import (
	"context"
	"errors"
)

// Common errors returned by storage backends
var (
	ErrNotFound = errors.New("storage: key not found")
)

// Storage persists serialized cart payloads under a key.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Load returns the payload stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the payload stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
