package shared

import (
	"context"
	"time"
)

// LockService provides distributed TTL-based locks, idempotency markers and
// durable set membership. Backed by Redis in production; an in-memory
// implementation exists for tests.
type LockService interface {
	// SetIfAbsent atomically sets key to value with a TTL.
	// Returns true if the key was newly set, false if it already existed.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Exists reports whether key is currently set
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// AddToSet adds member to the set stored at setKey
	AddToSet(ctx context.Context, setKey, member string) error

	// RemoveFromSet removes member from the set stored at setKey
	RemoveFromSet(ctx context.Context, setKey, member string) error

	// SetMembers returns all members of the set stored at setKey
	SetMembers(ctx context.Context, setKey string) ([]string, error)

	// Close closes the service and releases resources
	Close() error
}
