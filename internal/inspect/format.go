package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/swarmstate/pkg/swarmstore"
)

// OutputFormat specifies how list output is rendered.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated content
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates an -o flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, "":
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	}
	return "", fmt.Errorf("invalid output format '%s': must be 'default' or 'jsonl'", s)
}

// FormatSwarms writes swarms as a table. Returns the number of rows written.
func FormatSwarms(w io.Writer, swarms []*swarmstore.Swarm, now time.Time) int {
	if len(swarms) == 0 {
		fmt.Fprintln(w, "No swarms found")
		return 0
	}

	fmt.Fprintf(w, "%-20s %-20s %-12s %-20s %s\n", "ID", "STATE", "USER", "NAME", "UPDATED")
	fmt.Fprintf(w, "%-20s %-20s %-12s %-20s %s\n",
		"--------------------", "--------------------", "------------", "--------------------", "--------")
	for _, s := range swarms {
		fmt.Fprintf(w, "%-20s %-20s %-12s %-20s %s\n",
			truncate(s.ID, 20),
			s.State,
			orDash(truncate(s.Metadata.UserID, 12)),
			orDash(truncate(s.Metadata.Name, 20)),
			formatAge(s.UpdatedAt, now),
		)
	}

	fmt.Fprintf(w, "\n%s found\n", plural(len(swarms), "swarm"))
	return len(swarms)
}

// FormatTeams writes a swarm's teams as a table.
func FormatTeams(w io.Writer, swarmID string, teams []*swarmstore.SwarmTeam) int {
	if len(teams) == 0 {
		fmt.Fprintf(w, "No teams found for swarm '%s'\n", swarmID)
		return 0
	}

	fmt.Fprintf(w, "Teams for swarm '%s':\n\n", swarmID)
	fmt.Fprintf(w, "%-16s %-20s %-16s %s\n", "ID", "NAME", "LEADER", "AGENTS")
	fmt.Fprintf(w, "%-16s %-20s %-16s %s\n", "----------------", "--------------------", "----------------", "------")
	for _, t := range teams {
		fmt.Fprintf(w, "%-16s %-20s %-16s %d\n",
			truncate(t.ID, 16),
			orDash(truncate(t.Name, 20)),
			orDash(truncate(t.Leader, 16)),
			len(t.AgentIDs),
		)
	}

	fmt.Fprintf(w, "\n%s found\n", plural(len(teams), "team"))
	return len(teams)
}

// FormatAgents writes a swarm's agents as a table.
func FormatAgents(w io.Writer, swarmID string, agents []*swarmstore.SwarmAgent) int {
	if len(agents) == 0 {
		fmt.Fprintf(w, "No agents found for swarm '%s'\n", swarmID)
		return 0
	}

	fmt.Fprintf(w, "Agents for swarm '%s':\n\n", swarmID)
	fmt.Fprintf(w, "%-16s %-16s %-12s %s\n", "ID", "ROLE", "STATUS", "TEAM")
	fmt.Fprintf(w, "%-16s %-16s %-12s %s\n", "----------------", "----------------", "------------", "----------------")
	for _, a := range agents {
		fmt.Fprintf(w, "%-16s %-16s %-12s %s\n",
			truncate(a.ID, 16),
			orDash(truncate(a.Role, 16)),
			orDash(truncate(a.Status, 12)),
			orDash(a.TeamID),
		)
	}

	fmt.Fprintf(w, "\n%s found\n", plural(len(agents), "agent"))
	return len(agents)
}

// FormatBlackboard writes blackboard items as a table with content truncated
// to its first line.
func FormatBlackboard(w io.Writer, swarmID string, items []*swarmstore.BlackboardItem, now time.Time) int {
	if len(items) == 0 {
		fmt.Fprintf(w, "No blackboard items found for swarm '%s'\n", swarmID)
		return 0
	}

	fmt.Fprintf(w, "Blackboard for swarm '%s':\n\n", swarmID)
	fmt.Fprintf(w, "%-10s %-16s %-14s %-5s %-8s %s\n", "ID", "TYPE", "BY", "CONF", "AGE", "CONTENT")
	fmt.Fprintf(w, "%-10s %-16s %-14s %-5s %-8s %s\n",
		"----------", "----------------", "--------------", "-----", "--------", "----------------------------------------")
	for _, item := range items {
		fmt.Fprintf(w, "%-10s %-16s %-14s %-5s %-8s %s\n",
			formatID(item.ID),
			orDash(truncate(item.Type, 16)),
			orDash(truncate(item.ContributorID, 14)),
			formatConfidence(item.Confidence),
			formatAge(item.CreatedAt, now),
			formatContent(item.Content),
		)
	}

	fmt.Fprintf(w, "\n%s found\n", plural(len(items), "item"))
	return len(items)
}

// FormatJSONL writes each record as a single JSON object on its own line.
func FormatJSONL[T any](w io.Writer, records []T) error {
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one record as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID truncates generated ids to their first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func formatConfidence(c float64) string {
	if c == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", c)
}

// formatContent renders the first non-empty line of the item content, at
// most 40 characters. Non-string content is shown as compact JSON.
func formatContent(content any) string {
	var text string
	switch v := content.(type) {
	case nil:
		return "-"
	case string:
		text = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "?"
		}
		text = string(data)
	}

	var firstLine string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "-"
	}
	return truncate(firstLine, 40)
}

// formatAge shows relative time like "2m ago", "1h ago".
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
