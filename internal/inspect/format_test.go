package inspect

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFormatContent(t *testing.T) {
	tests := []struct {
		name     string
		content  any
		expected string
	}{
		{name: "nil content", content: nil, expected: "-"},
		{name: "empty string", content: "", expected: "-"},
		{name: "short single line", content: "hello", expected: "hello"},
		{name: "exactly 40 chars", content: strings.Repeat("a", 40), expected: strings.Repeat("a", 40)},
		{name: "41 chars - should truncate", content: strings.Repeat("a", 41), expected: strings.Repeat("a", 37) + "..."},
		{name: "multi-line - first line only", content: "First line\nSecond line", expected: "First line"},
		{name: "leading blank lines", content: "  \n  hello world  \n", expected: "hello world"},
		{name: "structured content as json", content: map[string]any{"claim": "x"}, expected: `{"claim":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatContent(tt.content))
		})
	}
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "-", formatAge(time.Time{}, now))
	assert.Equal(t, "30s ago", formatAge(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", formatAge(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", formatAge(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", formatAge(now.Add(-50*time.Hour), now))
	assert.Equal(t, "0s ago", formatAge(now.Add(time.Minute), now))
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	f, err = ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestFormatSwarms(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, 0, FormatSwarms(&buf, nil, now))
		assert.Equal(t, "No swarms found\n", buf.String())
	})

	t.Run("rows and count", func(t *testing.T) {
		var buf bytes.Buffer
		swarms := []*swarmstore.Swarm{
			{ID: "s1", State: swarmstore.StateActive, Metadata: swarmstore.SwarmMetadata{UserID: "u1", Name: "research"}, UpdatedAt: now.Add(-2 * time.Minute)},
			{ID: "s2", State: swarmstore.StateReady},
		}
		assert.Equal(t, 2, FormatSwarms(&buf, swarms, now))

		out := buf.String()
		assert.Contains(t, out, "STATE")
		assert.Contains(t, out, "ACTIVE")
		assert.Contains(t, out, "research")
		assert.Contains(t, out, "2m ago")
		assert.Contains(t, out, "2 swarms found")
	})
}

func TestFormatBlackboard(t *testing.T) {
	var buf bytes.Buffer
	items := []*swarmstore.BlackboardItem{{
		ID:            "8f14e45f-ceea-467f-a9c8-5d2e7f4a1b3c",
		Type:          "insight",
		ContributorID: "agent-1",
		Content:       "cache misses dominate\nmore detail",
		Confidence:    0.9,
		CreatedAt:     now.Add(-time.Hour),
	}}

	assert.Equal(t, 1, FormatBlackboard(&buf, "s1", items, now))
	out := buf.String()
	assert.Contains(t, out, "Blackboard for swarm 's1'")
	assert.Contains(t, out, "8f14e45f ")
	assert.NotContains(t, out, "ceea")
	assert.Contains(t, out, "0.90")
	assert.Contains(t, out, "cache misses dominate")
	assert.NotContains(t, out, "more detail")
	assert.Contains(t, out, "1 item found")
}

func TestFormatTeamsAndAgents(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, FormatTeams(&buf, "s1", nil))
	assert.Contains(t, buf.String(), "No teams found for swarm 's1'")

	buf.Reset()
	FormatTeams(&buf, "s1", []*swarmstore.SwarmTeam{{ID: "t1", Leader: "a1", AgentIDs: []string{"a1", "a2"}}})
	assert.Contains(t, buf.String(), "t1")
	assert.Contains(t, buf.String(), "1 team found")

	buf.Reset()
	FormatAgents(&buf, "s1", []*swarmstore.SwarmAgent{{ID: "a1", Role: "critic"}, {ID: "a2"}})
	assert.Contains(t, buf.String(), "critic")
	assert.Contains(t, buf.String(), "2 agents found")
}

func TestFormatJSONL(t *testing.T) {
	var buf bytes.Buffer
	teams := []*swarmstore.SwarmTeam{{ID: "t1"}, {ID: "t2"}}
	require.NoError(t, FormatJSONL(&buf, teams))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		var team swarmstore.SwarmTeam
		require.NoError(t, json.Unmarshal([]byte(line), &team))
		assert.Equal(t, teams[i].ID, team.ID)
	}
}

func TestFormatSingleJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatSingleJSON(&buf, &swarmstore.Swarm{ID: "s1", State: swarmstore.StateReady}))
	assert.Contains(t, buf.String(), "\n  \"id\": \"s1\"")
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
}
