package swarmstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	opCreateAgent = "CreateAgent"
	opGetAgent    = "GetAgent"
	opUpdateAgent = "UpdateAgent"
	opDeleteAgent = "DeleteAgent"
	opListAgents  = "ListAgents"
)

// CreateAgent writes an agent record and adds its id to the swarm's agent set.
func (s *Store) CreateAgent(ctx context.Context, swarmID string, agent *SwarmAgent) error {
	fields := []zap.Field{zap.String("swarm_id", swarmID)}
	if agent == nil || agent.ID == "" {
		return s.finish(opCreateAgent, fmt.Errorf("agent ID cannot be empty"), fields...)
	}
	fields = append(fields, zap.String("agent_id", agent.ID))

	record := *agent
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = s.now().UTC()
	}
	return createMember(ctx, s, opCreateAgent, AgentKey(swarmID, agent.ID), AgentsKey(swarmID), agent.ID, &record, fields)
}

// GetAgent returns the agent, or nil if it does not exist or cannot be read.
func (s *Store) GetAgent(ctx context.Context, swarmID, agentID string) *SwarmAgent {
	return getMember[SwarmAgent](ctx, s, opGetAgent, AgentKey(swarmID, agentID),
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("agent_id", agentID)})
}

// UpdateAgent shallow-merges patch over the stored agent.
// Returns a *NotFoundError if the agent does not exist.
func (s *Store) UpdateAgent(ctx context.Context, swarmID, agentID string, patch Patch) (*SwarmAgent, error) {
	return updateMember(ctx, s, opUpdateAgent,
		&NotFoundError{Kind: KindAgent, SwarmID: swarmID, ID: agentID},
		AgentKey(swarmID, agentID), patch,
		func(updated, current *SwarmAgent) { updated.UpdatedAt = s.stamp(current.UpdatedAt) },
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("agent_id", agentID)})
}

// DeleteAgent removes the agent from the swarm's agent set and deletes the record.
func (s *Store) DeleteAgent(ctx context.Context, swarmID, agentID string) error {
	return deleteMember(ctx, s, opDeleteAgent, AgentKey(swarmID, agentID), AgentsKey(swarmID), agentID,
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("agent_id", agentID)})
}

// ListAgents returns every agent in the swarm's agent set, sorted by id.
func (s *Store) ListAgents(ctx context.Context, swarmID string) []*SwarmAgent {
	return listMembers[SwarmAgent](ctx, s, opListAgents, AgentsKey(swarmID),
		func(id string) string { return AgentKey(swarmID, id) }, true,
		[]zap.Field{zap.String("swarm_id", swarmID)})
}
