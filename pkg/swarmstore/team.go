package swarmstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	opCreateTeam     = "CreateTeam"
	opGetTeamByID    = "GetTeamByID"
	opUpdateTeamByID = "UpdateTeamByID"
	opDeleteTeam     = "DeleteTeam"
	opListTeams      = "ListTeams"
)

// CreateTeam writes a team record and adds its id to the swarm's team set.
// Writing an existing team id replaces the record.
func (s *Store) CreateTeam(ctx context.Context, swarmID string, team *SwarmTeam) error {
	fields := []zap.Field{zap.String("swarm_id", swarmID)}
	if team == nil || team.ID == "" {
		return s.finish(opCreateTeam, fmt.Errorf("team ID cannot be empty"), fields...)
	}
	fields = append(fields, zap.String("team_id", team.ID))

	record := *team
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = s.now().UTC()
	}
	return createMember(ctx, s, opCreateTeam, TeamKey(swarmID, team.ID), TeamsKey(swarmID), team.ID, &record, fields)
}

// GetTeamByID returns the team, or nil if it does not exist or cannot be read.
func (s *Store) GetTeamByID(ctx context.Context, swarmID, teamID string) *SwarmTeam {
	return getMember[SwarmTeam](ctx, s, opGetTeamByID, TeamKey(swarmID, teamID),
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("team_id", teamID)})
}

// UpdateTeamByID shallow-merges patch over the stored team.
// Returns a *NotFoundError if the team does not exist.
func (s *Store) UpdateTeamByID(ctx context.Context, swarmID, teamID string, patch Patch) (*SwarmTeam, error) {
	return updateMember(ctx, s, opUpdateTeamByID,
		&NotFoundError{Kind: KindTeam, SwarmID: swarmID, ID: teamID},
		TeamKey(swarmID, teamID), patch,
		func(updated, current *SwarmTeam) { updated.UpdatedAt = s.stamp(current.UpdatedAt) },
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("team_id", teamID)})
}

// DeleteTeam removes the team from the swarm's team set and deletes the record.
// Deleting a missing team is a no-op.
func (s *Store) DeleteTeam(ctx context.Context, swarmID, teamID string) error {
	return deleteMember(ctx, s, opDeleteTeam, TeamKey(swarmID, teamID), TeamsKey(swarmID), teamID,
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("team_id", teamID)})
}

// ListTeams returns every team in the swarm's team set, sorted by id.
// Members whose record is missing are skipped.
func (s *Store) ListTeams(ctx context.Context, swarmID string) []*SwarmTeam {
	return listMembers[SwarmTeam](ctx, s, opListTeams, TeamsKey(swarmID),
		func(id string) string { return TeamKey(swarmID, id) }, true,
		[]zap.Field{zap.String("swarm_id", swarmID)})
}
