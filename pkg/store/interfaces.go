package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a saved itinerary does not exist.
var ErrNotFound = errors.New("not found")

// StateStore handles persistent application state as string blobs keyed by name.
// Every backend reads and writes a value atomically.
type StateStore interface {
	// GetState returns the value for key. found is false when the key does not exist.
	GetState(ctx context.Context, key string) (val string, found bool, err error)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend's connections.
	Close() error
}
