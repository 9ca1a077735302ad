package swarmstore

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Secondary indexes
//
// swarm_index:state:{state} and swarm_index:user:{user_id} are derived sets.
// They are written alongside the primary record but may drift from it: a write
// can fail between the two, and the sets expire on their own clock. Readers
// treat membership as a hint and verify each id against the primary record;
// ids that fail verification are pruned on the spot. There is no background
// sweep.

const (
	opGetSwarmsByState = "GetSwarmsByState"
	opGetSwarmsByUser  = "GetSwarmsByUser"
	opListActiveSwarms = "ListActiveSwarms"
)

// GetSwarmsByState returns the swarms whose stored state equals state.
// Stale index entries are removed as a side effect.
func (s *Store) GetSwarmsByState(ctx context.Context, state SwarmState) []*Swarm {
	return s.resolveIndex(ctx, opGetSwarmsByState, IndexByState, StateIndexKey(state),
		func(swarm *Swarm) bool { return swarm.State == state },
		zap.String("state", string(state)))
}

// GetSwarmsByUser returns the swarms whose metadata.userId equals userID.
// Stale index entries are removed as a side effect.
func (s *Store) GetSwarmsByUser(ctx context.Context, userID string) []*Swarm {
	return s.resolveIndex(ctx, opGetSwarmsByUser, IndexByUser, UserIndexKey(userID),
		func(swarm *Swarm) bool { return swarm.Metadata.UserID == userID },
		zap.String("user_id", userID))
}

// ListActiveSwarms returns the union of GetSwarmsByState over ActiveStates,
// de-duplicated and sorted by id.
func (s *Store) ListActiveSwarms(ctx context.Context) []*Swarm {
	seen := make(map[string]bool)
	swarms := []*Swarm{}
	for _, state := range activeStates {
		for _, swarm := range s.GetSwarmsByState(ctx, state) {
			if seen[swarm.ID] {
				continue
			}
			seen[swarm.ID] = true
			swarms = append(swarms, swarm)
		}
	}
	sort.Slice(swarms, func(i, j int) bool { return swarms[i].ID < swarms[j].ID })
	s.recorder.ObserveOperation(opListActiveSwarms, nil)
	return swarms
}

// resolveIndex loads every id in indexKey and keeps those matching. Ids whose
// record is missing or no longer matches are removed from the index. Ids whose
// record cannot be read because of a backend error are skipped but kept.
func (s *Store) resolveIndex(ctx context.Context, op, index, indexKey string, matches func(*Swarm) bool, field zap.Field) []*Swarm {
	ids, err := s.backend.SMembers(ctx, indexKey)
	if err != nil {
		s.degrade(op, fmt.Errorf("failed to read index %s: %w", indexKey, err), field)
		return []*Swarm{}
	}
	sort.Strings(ids)

	swarms := make([]*Swarm, 0, len(ids))
	for _, id := range ids {
		swarm, err := s.loadSwarm(ctx, id, true)
		switch {
		case err == nil && matches(swarm):
			swarms = append(swarms, swarm)
			continue
		case err != nil && !IsNotFound(err):
			s.logger.Error("failed to verify index entry",
				field, zap.String("swarm_id", id), zap.Error(err))
			continue
		}

		if current := s.pruneIndexEntry(ctx, index, indexKey, id, matches, field); current != nil {
			swarms = append(swarms, current)
		}
	}
	s.recorder.ObserveOperation(op, nil)
	return swarms
}

// pruneIndexEntry removes id from indexKey if its record, re-read under the
// swarm's lock, is still missing or still does not match. A swarm that a
// concurrent write brought back into the index is returned instead.
func (s *Store) pruneIndexEntry(ctx context.Context, index, indexKey, id string, matches func(*Swarm) bool, field zap.Field) *Swarm {
	unlock := s.locks.Lock(SwarmKey(id))
	defer unlock()

	swarm, err := s.loadSwarm(ctx, id, false)
	switch {
	case err == nil && matches(swarm):
		return swarm
	case err != nil && !IsNotFound(err):
		s.logger.Error("failed to verify index entry",
			field, zap.String("swarm_id", id), zap.Error(err))
		return nil
	}

	if err := s.backend.SRem(ctx, indexKey, id); err != nil {
		s.logger.Error("failed to prune stale index entry",
			field, zap.String("swarm_id", id), zap.Error(err))
		return nil
	}
	s.recorder.IndexRepaired(index)
	s.logger.Debug("pruned stale index entry", field, zap.String("swarm_id", id))
	return nil
}

// indexSwarm adds the swarm to its state index and, if owned, its user index.
func (s *Store) indexSwarm(ctx context.Context, w Writer, swarm *Swarm) error {
	if err := s.addMember(ctx, w, StateIndexKey(swarm.State), swarm.ID); err != nil {
		return err
	}
	if swarm.Metadata.UserID != "" {
		return s.addMember(ctx, w, UserIndexKey(swarm.Metadata.UserID), swarm.ID)
	}
	return nil
}

// unindexSwarm removes the swarm from the indexes its record places it in.
func (s *Store) unindexSwarm(ctx context.Context, w Writer, swarm *Swarm) error {
	if err := s.removeFromStateIndexes(ctx, w, swarm.ID, swarm.State, ""); err != nil {
		return err
	}
	if swarm.Metadata.UserID != "" {
		return w.SRem(ctx, UserIndexKey(swarm.Metadata.UserID), swarm.ID)
	}
	return nil
}

// moveStateIndex removes id from the previous state's index and adds it to
// the new one.
func (s *Store) moveStateIndex(ctx context.Context, w Writer, id string, from, to SwarmState) error {
	if err := s.removeFromStateIndexes(ctx, w, id, from, to); err != nil {
		return err
	}
	return s.addMember(ctx, w, StateIndexKey(to), id)
}

// removeFromStateIndexes removes id from the index of state prev. With the
// exhaustive sweep enabled it removes id from every state index except keep.
func (s *Store) removeFromStateIndexes(ctx context.Context, w Writer, id string, prev, keep SwarmState) error {
	if !s.exhaustiveSweep {
		return w.SRem(ctx, StateIndexKey(prev), id)
	}
	for _, state := range allStates {
		if state == keep {
			continue
		}
		if err := w.SRem(ctx, StateIndexKey(state), id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) moveUserIndex(ctx context.Context, w Writer, id, from, to string) error {
	if from != "" {
		if err := w.SRem(ctx, UserIndexKey(from), id); err != nil {
			return err
		}
	}
	if to != "" {
		return s.addMember(ctx, w, UserIndexKey(to), id)
	}
	return nil
}
