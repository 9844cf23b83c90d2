package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("kvstore: record not found")

// Store persists opaque per-user records keyed by (userID, resource).
// Resource names are deterministic, e.g. "paper:holdings" or "subscription".
type Store interface {
	Get(ctx context.Context, userID, resource string) ([]byte, error)
	Put(ctx context.Context, userID, resource string, data []byte) error
}
