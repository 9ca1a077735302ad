package swarmstore

import (
	"context"
	"time"
)

// Writer is the mutating half of a Backend. It is also the view handed to
// Transactional.Atomically callbacks, where reads are not available.
type Writer interface {
	// Set stores value under key with the given expiry. A ttl of 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Expire resets the expiry of an existing key. Missing keys are ignored.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Del removes a key. Missing keys are ignored.
	Del(ctx context.Context, key string) error
	// SAdd adds member to the set at key, creating the set if needed.
	SAdd(ctx context.Context, key, member string) error
	// SRem removes member from the set at key. Absent members are ignored.
	SRem(ctx context.Context, key, member string) error
}

// Backend is the key-value store the swarm store persists into.
// Implementations must be safe for concurrent use.
type Backend interface {
	Writer
	// Get returns the string stored at key, or an error matching ErrNotFound
	// if the key does not exist or has expired.
	Get(ctx context.Context, key string) (string, error)
	// SMembers returns the members of the set at key. A missing set is empty.
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Transactional is implemented by backends that can apply a batch of writes
// as one atomic unit. Writes issued through the Writer passed to fn are
// buffered and applied together only if fn returns nil.
type Transactional interface {
	Backend
	Atomically(ctx context.Context, fn func(tx Writer) error) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
