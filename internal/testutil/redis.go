// Package testutil provides a Redis-backed store environment for tests that
// drive swarmstate from the outside, such as the CLI.
package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// RedisEnvironment is an isolated miniredis instance with a store bound to it.
type RedisEnvironment struct {
	T      *testing.T
	Redis  *miniredis.Miniredis
	URL    string
	Client redis.UniversalClient
	Store  *swarmstore.Store
	Ctx    context.Context
}

// SetupRedisEnvironment starts miniredis and builds a store on it. Everything
// is torn down with the test.
func SetupRedisEnvironment(t *testing.T, opts ...swarmstore.Option) *RedisEnvironment {
	t.Helper()

	mr := miniredis.RunT(t)
	backend := swarmstore.NewRedisBackend(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { backend.Close() })

	store, err := swarmstore.New(backend, opts...)
	require.NoError(t, err, "Failed to create store")

	return &RedisEnvironment{
		T:      t,
		Redis:  mr,
		URL:    "redis://" + mr.Addr(),
		Client: backend.RedisClient(),
		Store:  store,
		Ctx:    context.Background(),
	}
}

// CreateSwarm writes a swarm in the given state and fails the test on error.
func (env *RedisEnvironment) CreateSwarm(id string, state swarmstore.SwarmState, userID string) {
	env.T.Helper()
	err := env.Store.CreateSwarm(env.Ctx, id, &swarmstore.Swarm{
		State:    state,
		Metadata: swarmstore.SwarmMetadata{UserID: userID},
	})
	require.NoError(env.T, err, "Failed to create swarm %s", id)
}

// AddItems posts blackboard items to a swarm and returns their ids in order.
func (env *RedisEnvironment) AddItems(swarmID string, items ...*swarmstore.BlackboardItem) []string {
	env.T.Helper()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := env.Store.AddBlackboardItem(env.Ctx, swarmID, item)
		require.NoError(env.T, err, "Failed to add blackboard item")
		ids = append(ids, id)
	}
	return ids
}

// IsMember reports whether member is in the set at key. A missing set has
// no members.
func (env *RedisEnvironment) IsMember(key, member string) bool {
	env.T.Helper()
	ok, err := env.Redis.IsMember(key, member)
	if err == miniredis.ErrKeyNotFound {
		return false
	}
	require.NoError(env.T, err)
	return ok
}
