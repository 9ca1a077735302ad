package swarmstore

import (
	"fmt"
	"time"
)

// Redis key pattern helpers
//
// Swarm-scoped entities live under swarm:{swarm_id}. Secondary indexes live under
// the separate swarm_index: prefix so they can never collide with a swarm id.
//
// Key pattern: swarm:{swarm_id}[:{entity}:{entity_id}]
// Index pattern: swarm_index:{index}:{value}

// DefaultTTL is the expiry applied to every key written by the store.
// It is refreshed on each successful point read of a primary record.
const DefaultTTL = 7 * 24 * time.Hour

// SwarmKey returns the Redis key for a swarm record.
// Pattern: swarm:{swarm_id}
func SwarmKey(swarmID string) string {
	return fmt.Sprintf("swarm:%s", swarmID)
}

// StateIndexKey returns the Redis key for the by-state index set.
// Pattern: swarm_index:state:{state}
func StateIndexKey(state SwarmState) string {
	return fmt.Sprintf("swarm_index:state:%s", state)
}

// UserIndexKey returns the Redis key for the by-user index set.
// Pattern: swarm_index:user:{user_id}
func UserIndexKey(userID string) string {
	return fmt.Sprintf("swarm_index:user:%s", userID)
}

// TeamKey returns the Redis key for a team record.
// Pattern: swarm:{swarm_id}:team:{team_id}
func TeamKey(swarmID, teamID string) string {
	return fmt.Sprintf("swarm:%s:team:%s", swarmID, teamID)
}

// TeamsKey returns the Redis key for a swarm's team membership set.
// Pattern: swarm:{swarm_id}:teams
func TeamsKey(swarmID string) string {
	return fmt.Sprintf("swarm:%s:teams", swarmID)
}

// AgentKey returns the Redis key for an agent record.
// Pattern: swarm:{swarm_id}:agent:{agent_id}
func AgentKey(swarmID, agentID string) string {
	return fmt.Sprintf("swarm:%s:agent:%s", swarmID, agentID)
}

// AgentsKey returns the Redis key for a swarm's agent membership set.
// Pattern: swarm:{swarm_id}:agents
func AgentsKey(swarmID string) string {
	return fmt.Sprintf("swarm:%s:agents", swarmID)
}

// BlackboardItemKey returns the Redis key for a blackboard item.
// Pattern: swarm:{swarm_id}:blackboard:{item_id}
func BlackboardItemKey(swarmID, itemID string) string {
	return fmt.Sprintf("swarm:%s:blackboard:%s", swarmID, itemID)
}

// BlackboardKey returns the Redis key for a swarm's blackboard membership set.
// Pattern: swarm:{swarm_id}:blackboard
func BlackboardKey(swarmID string) string {
	return fmt.Sprintf("swarm:%s:blackboard", swarmID)
}

// ResourceAllocationsKey returns the Redis key for a resource's holder set.
// Pattern: swarm:{swarm_id}:resource:{resource_id}:allocations
func ResourceAllocationsKey(swarmID, resourceID string) string {
	return fmt.Sprintf("swarm:%s:resource:%s:allocations", swarmID, resourceID)
}
