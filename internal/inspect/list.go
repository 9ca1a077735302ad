package inspect

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dyluth/swarmstate/internal/filter"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
)

// SwarmQuery selects the swarms ListSwarms reports. At most one selector may
// be set; an empty query lists active swarms.
type SwarmQuery struct {
	State  swarmstore.SwarmState
	UserID string
}

// Validate rejects queries with more than one selector.
func (q SwarmQuery) Validate() error {
	if q.State != "" && q.UserID != "" {
		return fmt.Errorf("--state and --user are mutually exclusive")
	}
	if q.State != "" {
		return q.State.Validate()
	}
	return nil
}

// ListSwarms resolves the query against the store and writes the result.
func ListSwarms(ctx context.Context, store swarmstore.StateStore, q SwarmQuery, format OutputFormat, w io.Writer, now time.Time) error {
	if err := q.Validate(); err != nil {
		return err
	}

	var swarms []*swarmstore.Swarm
	switch {
	case q.State != "":
		swarms = store.GetSwarmsByState(ctx, q.State)
	case q.UserID != "":
		swarms = store.GetSwarmsByUser(ctx, q.UserID)
	default:
		swarms = store.ListActiveSwarms(ctx)
	}

	if format == OutputFormatJSONL {
		return FormatJSONL(w, swarms)
	}
	FormatSwarms(w, swarms, now)
	return nil
}

// GetSwarm writes one swarm as pretty-printed JSON. Returns a
// *swarmstore.NotFoundError when it does not exist.
func GetSwarm(ctx context.Context, store swarmstore.StateStore, id string, w io.Writer) error {
	swarm := store.GetSwarm(ctx, id)
	if swarm == nil {
		return &swarmstore.NotFoundError{Kind: swarmstore.KindSwarm, ID: id}
	}
	if err := FormatSingleJSON(w, swarm); err != nil {
		return fmt.Errorf("failed to format swarm: %w", err)
	}
	return nil
}

// ListTeams writes the swarm's teams.
func ListTeams(ctx context.Context, store swarmstore.StateStore, swarmID string, format OutputFormat, w io.Writer) error {
	teams := store.ListTeams(ctx, swarmID)
	if format == OutputFormatJSONL {
		return FormatJSONL(w, teams)
	}
	FormatTeams(w, swarmID, teams)
	return nil
}

// ListAgents writes the swarm's agents.
func ListAgents(ctx context.Context, store swarmstore.StateStore, swarmID string, format OutputFormat, w io.Writer) error {
	agents := store.ListAgents(ctx, swarmID)
	if format == OutputFormatJSONL {
		return FormatJSONL(w, agents)
	}
	FormatAgents(w, swarmID, agents)
	return nil
}

// ListBlackboard writes the swarm's blackboard items matching criteria,
// oldest first. A nil criteria lists every item.
func ListBlackboard(ctx context.Context, store swarmstore.StateStore, swarmID string, criteria *filter.Criteria, format OutputFormat, w io.Writer, now time.Time) error {
	if criteria != nil {
		if err := criteria.Validate(); err != nil {
			return fmt.Errorf("invalid --type pattern: %w", err)
		}
	}

	items := store.GetBlackboardItems(ctx, swarmID, criteria.Predicate())
	sortByCreation(items)

	if format == OutputFormatJSONL {
		return FormatJSONL(w, items)
	}
	FormatBlackboard(w, swarmID, items, now)
	return nil
}

// sortByCreation orders items chronologically, falling back to id.
func sortByCreation(items []*swarmstore.BlackboardItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
