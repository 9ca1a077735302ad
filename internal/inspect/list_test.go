package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/swarmstate/internal/filter"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *swarmstore.Store {
	store, err := swarmstore.New(swarmstore.NewMemoryBackend(nil), swarmstore.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.CreateSwarm(ctx, "s1", &swarmstore.Swarm{State: swarmstore.StateActive, Metadata: swarmstore.SwarmMetadata{UserID: "u1"}}))
	require.NoError(t, store.CreateSwarm(ctx, "s2", &swarmstore.Swarm{State: swarmstore.StateCompleted, Metadata: swarmstore.SwarmMetadata{UserID: "u1"}}))
	require.NoError(t, store.CreateSwarm(ctx, "s3", &swarmstore.Swarm{State: swarmstore.StateReady}))
	return store
}

func TestListSwarms(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	t.Run("defaults to active swarms", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ListSwarms(ctx, store, SwarmQuery{}, OutputFormatDefault, &buf, now))
		assert.Contains(t, buf.String(), "s1")
		assert.Contains(t, buf.String(), "s3")
		assert.NotContains(t, buf.String(), "s2")
	})

	t.Run("by state as jsonl", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ListSwarms(ctx, store, SwarmQuery{State: swarmstore.StateCompleted}, OutputFormatJSONL, &buf, now))

		var swarm swarmstore.Swarm
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &swarm))
		assert.Equal(t, "s2", swarm.ID)
	})

	t.Run("by user", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ListSwarms(ctx, store, SwarmQuery{UserID: "u1"}, OutputFormatJSONL, &buf, now))
		assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
	})

	t.Run("rejects conflicting selectors", func(t *testing.T) {
		err := ListSwarms(ctx, store, SwarmQuery{State: swarmstore.StateReady, UserID: "u1"}, OutputFormatDefault, &bytes.Buffer{}, now)
		assert.Error(t, err)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		err := ListSwarms(ctx, store, SwarmQuery{State: "PAUSED"}, OutputFormatDefault, &bytes.Buffer{}, now)
		assert.Error(t, err)
	})
}

func TestGetSwarm(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, GetSwarm(ctx, store, "s1", &buf))
	assert.Contains(t, buf.String(), `"state": "ACTIVE"`)

	err := GetSwarm(ctx, store, "missing", &buf)
	require.Error(t, err)
	assert.True(t, swarmstore.IsNotFound(err))
}

func TestListBlackboard(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	items := []*swarmstore.BlackboardItem{
		{ID: "b", Type: "insight", ContributorID: "a1", CreatedAt: now.Add(-time.Hour)},
		{ID: "a", Type: "question", ContributorID: "a2", CreatedAt: now.Add(-time.Minute)},
		{ID: "c", Type: "insight.cost", ContributorID: "a2", CreatedAt: now.Add(-2 * time.Hour)},
	}
	for _, item := range items {
		_, err := store.AddBlackboardItem(ctx, "s1", item)
		require.NoError(t, err)
	}

	ids := func(buf *bytes.Buffer) []string {
		var out []string
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			var item swarmstore.BlackboardItem
			require.NoError(t, json.Unmarshal([]byte(line), &item))
			out = append(out, item.ID)
		}
		return out
	}

	t.Run("oldest first", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ListBlackboard(ctx, store, "s1", nil, OutputFormatJSONL, &buf, now))
		assert.Equal(t, []string{"c", "b", "a"}, ids(&buf))
	})

	t.Run("type glob", func(t *testing.T) {
		var buf bytes.Buffer
		criteria := &filter.Criteria{TypeGlob: "insight*"}
		require.NoError(t, ListBlackboard(ctx, store, "s1", criteria, OutputFormatJSONL, &buf, now))
		assert.Equal(t, []string{"c", "b"}, ids(&buf))
	})

	t.Run("contributor and since", func(t *testing.T) {
		var buf bytes.Buffer
		criteria := &filter.Criteria{ContributorID: "a2", Since: now.Add(-90 * time.Minute)}
		require.NoError(t, ListBlackboard(ctx, store, "s1", criteria, OutputFormatJSONL, &buf, now))
		assert.Equal(t, []string{"a"}, ids(&buf))
	})

	t.Run("table output", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ListBlackboard(ctx, store, "s1", nil, OutputFormatDefault, &buf, now))
		assert.Contains(t, buf.String(), "3 items found")
	})

	t.Run("bad glob", func(t *testing.T) {
		err := ListBlackboard(ctx, store, "s1", &filter.Criteria{TypeGlob: "[x"}, OutputFormatDefault, &bytes.Buffer{}, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --type pattern")
	})
}
