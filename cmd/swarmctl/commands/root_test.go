package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dyluth/swarmstate/internal/config"
	"github.com/dyluth/swarmstate/internal/testutil"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// runCLI executes a fresh command tree and captures both output streams.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvRedisURL, "")
	t.Setenv(config.EnvLogLevel, "")

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// setupRedis returns the URL of a fresh miniredis plus a store sharing it,
// for seeding and checking state outside the CLI.
func setupRedis(t *testing.T) (string, *swarmstore.Store) {
	env := testutil.SetupRedisEnvironment(t)
	return env.URL, env.Store
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	stdout, _, err := runCLI(t)
	assert.NoError(t, err)
	assert.Contains(t, stdout, "Usage:", "Help should be displayed")
	assert.Contains(t, stdout, "swarmctl")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := runCLI(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_GroupCommandNeedsNoBackend(t *testing.T) {
	// An unreachable URL is never dialled for help output.
	stdout, _, err := runCLI(t, "swarm", "--redis-url", "redis://127.0.0.1:1")
	assert.NoError(t, err)
	assert.Contains(t, stdout, "set-state")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, stderr, err := runCLI(t, "swarm", "list", "--log-level", "loud", "--memory")
	require.Error(t, err)
	assert.Equal(t, "invalid configuration", err.Error())
	assert.Contains(t, stderr, "log.level")
}

func TestSwarmCommands(t *testing.T) {
	redisURL, store := setupRedis(t)
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL,
			"swarm", "create", "s1", "--state", "active", "--user", "u1", "--name", "demo")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Created swarm s1 (ACTIVE)")

		swarm := store.GetSwarm(ctx, "s1")
		require.NotNil(t, swarm)
		assert.Equal(t, swarmstore.StateActive, swarm.State)
		assert.Equal(t, "demo", swarm.Metadata.Name)
	})

	t.Run("create rejects unknown state", func(t *testing.T) {
		_, stderr, err := runCLI(t, "--redis-url", redisURL, "swarm", "create", "s2", "--state", "paused")
		require.Error(t, err)
		assert.Equal(t, "invalid state", err.Error())
		assert.Contains(t, stderr, "Valid states:")
		assert.Nil(t, store.GetSwarm(ctx, "s2"))
	})

	t.Run("get", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "get", "s1")
		require.NoError(t, err)

		var swarm swarmstore.Swarm
		require.NoError(t, json.Unmarshal([]byte(stdout), &swarm))
		assert.Equal(t, "s1", swarm.ID)
		assert.Equal(t, "u1", swarm.Metadata.UserID)
	})

	t.Run("get missing", func(t *testing.T) {
		_, stderr, err := runCLI(t, "--redis-url", redisURL, "swarm", "get", "ghost")
		require.Error(t, err)
		assert.Equal(t, "swarm 'ghost' not found", err.Error())
		assert.Contains(t, stderr, "swarmctl swarm list")
	})

	t.Run("list active by default", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "s1")
		assert.Contains(t, stdout, "1 swarm found")
	})

	t.Run("set-state", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "set-state", "s1", "completed")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Swarm s1 is now COMPLETED")
		assert.Contains(t, stdout, "no longer appears in 'swarm list'")
		assert.Equal(t, swarmstore.StateCompleted, store.GetSwarmState(ctx, "s1"))

		stdout, _, err = runCLI(t, "--redis-url", redisURL, "swarm", "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No swarms found")
	})

	t.Run("set-state on missing swarm", func(t *testing.T) {
		_, stderr, err := runCLI(t, "--redis-url", redisURL, "swarm", "set-state", "ghost", "READY")
		require.Error(t, err)
		assert.Contains(t, stderr, "swarmctl swarm create ghost --state READY")
	})

	t.Run("list by state as jsonl", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "list", "--state", "COMPLETED", "-o", "jsonl")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 1)
		var swarm swarmstore.Swarm
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &swarm))
		assert.Equal(t, swarmstore.StateCompleted, swarm.State)
	})

	t.Run("list by user", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "list", "--user", "u1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "s1")
	})

	t.Run("list selectors are exclusive", func(t *testing.T) {
		_, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "list", "--user", "u1", "--state", "READY")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "none of the others can be")
	})

	t.Run("delete", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "delete", "s1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Deleted swarm s1")
		assert.Nil(t, store.GetSwarm(ctx, "s1"))
		assert.Empty(t, store.GetSwarmsByUser(ctx, "u1"))
	})
}

func TestSwarmCommands_MemoryBackend(t *testing.T) {
	stdout, _, err := runCLI(t, "--memory", "swarm", "create", "s1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created swarm s1 (UNINITIALIZED)")

	// Each invocation starts from an empty backend.
	_, _, err = runCLI(t, "--memory", "swarm", "get", "s1")
	assert.Error(t, err)
}

func TestSwarmSetState_ActiveStateHasNoFinishedNote(t *testing.T) {
	redisURL, store := setupRedis(t)
	require.NoError(t, store.CreateSwarm(context.Background(), "s1", &swarmstore.Swarm{State: swarmstore.StateReady}))

	stdout, _, err := runCLI(t, "--redis-url", redisURL, "swarm", "set-state", "s1", "ACTIVE")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Swarm s1 is now ACTIVE")
	assert.NotContains(t, stdout, "no longer appears")
}

func TestTeamAndAgentCommands(t *testing.T) {
	redisURL, store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTeam(ctx, "s1", &swarmstore.SwarmTeam{ID: "t1", Name: "research", Leader: "a1"}))
	require.NoError(t, store.CreateAgent(ctx, "s1", &swarmstore.SwarmAgent{ID: "a1", Role: "planner", TeamID: "t1"}))
	require.NoError(t, store.CreateAgent(ctx, "s1", &swarmstore.SwarmAgent{ID: "a2", Role: "critic"}))

	stdout, _, err := runCLI(t, "--redis-url", redisURL, "team", "list", "s1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "research")
	assert.Contains(t, stdout, "1 team found")

	stdout, _, err = runCLI(t, "--redis-url", redisURL, "agent", "list", "s1", "-o", "jsonl")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 2)
	assert.Contains(t, stdout, `"role":"critic"`)

	stdout, _, err = runCLI(t, "--redis-url", redisURL, "agent", "list", "empty")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No agents found for swarm 'empty'")

	_, _, err = runCLI(t, "--redis-url", redisURL, "team", "list", "s1", "-o", "yaml")
	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())
}

func TestBlackboardCommand(t *testing.T) {
	redisURL, store := setupRedis(t)
	ctx := context.Background()

	for _, item := range []*swarmstore.BlackboardItem{
		{ID: "i1", Type: "insight", ContributorID: "a1", Content: "cache misses dominate", Confidence: 0.9},
		{ID: "i2", Type: "insight-draft", ContributorID: "a2", Content: "maybe", Confidence: 0.3},
		{ID: "i3", Type: "task", ContributorID: "a1", Content: "profile", Tags: []string{"perf"}},
	} {
		_, err := store.AddBlackboardItem(ctx, "s1", item)
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "all items", args: nil, want: []string{"i1", "i2", "i3"}},
		{name: "type glob", args: []string{"--type", "insight*"}, want: []string{"i1", "i2"}},
		{name: "contributor", args: []string{"--contributor", "a1"}, want: []string{"i1", "i3"}},
		{name: "tag", args: []string{"--tag", "perf"}, want: []string{"i3"}},
		{name: "min confidence", args: []string{"--min-confidence", "0.5"}, want: []string{"i1"}},
		{name: "since", args: []string{"--since", "1h"}, want: []string{"i1", "i2", "i3"}},
		{name: "until excludes recent items", args: []string{"--until", "1h"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--redis-url", redisURL, "blackboard", "list", "s1", "-o", "jsonl"}, tt.args...)
			stdout, _, err := runCLI(t, args...)
			require.NoError(t, err)

			var ids []string
			for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
				if line == "" {
					continue
				}
				var item swarmstore.BlackboardItem
				require.NoError(t, json.Unmarshal([]byte(line), &item))
				ids = append(ids, item.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}

	t.Run("table output", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "bb", "list", "s1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "cache misses dominate")
		assert.Contains(t, stdout, "3 items found")
	})

	t.Run("inverted range", func(t *testing.T) {
		_, stderr, err := runCLI(t, "--redis-url", redisURL, "blackboard", "list", "s1", "--since", "1h", "--until", "2h")
		require.Error(t, err)
		assert.Equal(t, "invalid time range", err.Error())
		assert.Contains(t, stderr, "--since must be before --until")
	})

	t.Run("bad glob", func(t *testing.T) {
		_, _, err := runCLI(t, "--redis-url", redisURL, "blackboard", "list", "s1", "--type", "[")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --type pattern")
	})

	t.Run("confidence out of range", func(t *testing.T) {
		_, _, err := runCLI(t, "--redis-url", redisURL, "blackboard", "list", "s1", "--min-confidence", "2")
		require.Error(t, err)
		assert.Equal(t, "invalid --min-confidence", err.Error())
	})
}

func TestResourceCommands(t *testing.T) {
	redisURL, store := setupRedis(t)
	ctx := context.Background()

	for _, consumer := range []string{"a1", "a2"} {
		stdout, _, err := runCLI(t, "--redis-url", redisURL, "resource", "allocate", "s1", "gpu", consumer, "--type", "compute")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Allocated gpu to "+consumer)
	}
	assert.Equal(t, []string{"a1", "a2"}, store.GetResourceAllocation(ctx, "s1", "gpu"))

	stdout, _, err := runCLI(t, "--redis-url", redisURL, "resource", "holders", "s1", "gpu")
	require.NoError(t, err)
	assert.Equal(t, "a1\na2\n", stdout)

	_, _, err = runCLI(t, "--redis-url", redisURL, "resource", "release", "s1", "gpu", "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, store.GetResourceAllocation(ctx, "s1", "gpu"))

	stdout, _, err = runCLI(t, "--redis-url", redisURL, "resource", "holders", "s1", "tpu")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No holders for tpu")
}

func TestServeCommand(t *testing.T) {
	redisURL, _ := setupRedis(t)

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stdout, _, err := runCLIContext(t, ctx, "--redis-url", redisURL, "serve", "--addr", "127.0.0.1:0")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Serving health and metrics on 127.0.0.1:")
	})

	t.Run("reports bind failures", func(t *testing.T) {
		_, stderr, err := runCLI(t, "--redis-url", redisURL, "serve", "--addr", "256.0.0.1:80")
		require.Error(t, err)
		assert.Equal(t, "failed to start server", err.Error())
		assert.Contains(t, stderr, "256.0.0.1:80")
	})
}

func TestBlackboardGetAndRemove(t *testing.T) {
	redisURL, store := setupRedis(t)
	ctx := context.Background()

	id, err := store.AddBlackboardItem(ctx, "s1", &swarmstore.BlackboardItem{Type: "insight", Content: "x"})
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "--redis-url", redisURL, "blackboard", "get", "s1", id[:8])
	require.NoError(t, err)
	var item swarmstore.BlackboardItem
	require.NoError(t, json.Unmarshal([]byte(stdout), &item))
	assert.Equal(t, id, item.ID)

	_, stderr, err := runCLI(t, "--redis-url", redisURL, "blackboard", "get", "s1", "zzzzzzzz")
	require.Error(t, err)
	assert.Equal(t, "blackboard item not found", err.Error())
	assert.Contains(t, stderr, "swarmctl blackboard list s1")

	_, _, err = runCLI(t, "--redis-url", redisURL, "blackboard", "get", "s1", "abc")
	require.Error(t, err)
	assert.Equal(t, "invalid item id", err.Error())

	stdout, _, err = runCLI(t, "--redis-url", redisURL, "blackboard", "remove", "s1", id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Removed "+id)
	assert.Nil(t, store.GetBlackboardItem(ctx, "s1", id))
}
