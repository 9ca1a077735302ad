package swarmstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	opCreateSwarm      = "CreateSwarm"
	opGetSwarm         = "GetSwarm"
	opUpdateSwarm      = "UpdateSwarm"
	opDeleteSwarm      = "DeleteSwarm"
	opUpdateSwarmState = "UpdateSwarmState"
	opUpdateTeam       = "UpdateTeam"
)

// CreateSwarm writes the swarm record under id and adds it to the state and
// user indexes. An empty State defaults to StateUninitialized and zero
// timestamps are stamped with the current time. The caller's struct is not
// modified.
//
// With a Transactional backend the record and its index entries are written
// in one MULTI/EXEC; otherwise they are separate writes and a failure between
// them is repaired lazily by GetSwarmsByState/GetSwarmsByUser.
func (s *Store) CreateSwarm(ctx context.Context, id string, swarm *Swarm) error {
	fields := []zap.Field{zap.String("swarm_id", id)}
	if swarm == nil {
		return s.finish(opCreateSwarm, fmt.Errorf("swarm cannot be nil"), fields...)
	}

	record := *swarm
	record.ID = id
	if record.State == "" {
		record.State = StateUninitialized
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	if err := record.Validate(); err != nil {
		return s.finish(opCreateSwarm, fmt.Errorf("invalid swarm: %w", err), fields...)
	}

	data, err := encodeRecord(&record)
	if err != nil {
		return s.finish(opCreateSwarm, fmt.Errorf("failed to serialize swarm: %w", err), fields...)
	}

	unlock := s.locks.Lock(SwarmKey(id))
	defer unlock()

	err = s.write(ctx, func(w Writer) error {
		if err := w.Set(ctx, SwarmKey(id), data, s.ttl); err != nil {
			return err
		}
		return s.indexSwarm(ctx, w, &record)
	})
	if err != nil {
		return s.finish(opCreateSwarm, fmt.Errorf("failed to write swarm to Redis: %w", err), fields...)
	}

	fields = append(fields, zap.String("state", string(record.State)))
	return s.finish(opCreateSwarm, nil, fields...)
}

// GetSwarm returns the swarm stored under id, or nil if it does not exist or
// cannot be read. A successful read refreshes the record's TTL.
func (s *Store) GetSwarm(ctx context.Context, id string) *Swarm {
	swarm, err := s.loadSwarm(ctx, id, true)
	if err != nil {
		if !IsNotFound(err) {
			s.degrade(opGetSwarm, err, zap.String("swarm_id", id))
		}
		return nil
	}
	s.recorder.ObserveOperation(opGetSwarm, nil)
	return swarm
}

// UpdateSwarm shallow-merges patch over the stored swarm, stamps UpdatedAt and
// writes the result with a fresh TTL. Index membership follows any change of
// state or metadata.userId: the swarm leaves the index of its previous state
// and joins the new one. Stray entries in other state indexes are left for
// lazy repair unless WithExhaustiveIndexSweep is set. Returns a
// *NotFoundError if the swarm does not exist.
func (s *Store) UpdateSwarm(ctx context.Context, id string, patch Patch) (*Swarm, error) {
	return s.updateSwarm(ctx, opUpdateSwarm, id, patch)
}

func (s *Store) updateSwarm(ctx context.Context, op, id string, patch Patch) (*Swarm, error) {
	fields := []zap.Field{zap.String("swarm_id", id)}

	unlock := s.locks.Lock(SwarmKey(id))
	defer unlock()

	current, err := s.loadSwarm(ctx, id, false)
	if err != nil {
		if IsNotFound(err) {
			return nil, s.finish(op, &NotFoundError{Kind: KindSwarm, ID: id}, fields...)
		}
		return nil, s.finish(op, fmt.Errorf("failed to read swarm: %w", err), fields...)
	}

	var updated Swarm
	if err := applyPatch(current, patch, &updated); err != nil {
		return nil, s.finish(op, err, fields...)
	}
	if err := updated.State.Validate(); err != nil {
		return nil, s.finish(op, fmt.Errorf("invalid swarm update: %w", err), fields...)
	}
	updated.UpdatedAt = s.stamp(current.UpdatedAt)

	data, err := encodeRecord(&updated)
	if err != nil {
		return nil, s.finish(op, fmt.Errorf("failed to serialize swarm: %w", err), fields...)
	}

	err = s.write(ctx, func(w Writer) error {
		if err := w.Set(ctx, SwarmKey(id), data, s.ttl); err != nil {
			return err
		}
		if updated.State != current.State {
			if err := s.moveStateIndex(ctx, w, id, current.State, updated.State); err != nil {
				return err
			}
		}
		if updated.Metadata.UserID != current.Metadata.UserID {
			return s.moveUserIndex(ctx, w, id, current.Metadata.UserID, updated.Metadata.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, s.finish(op, fmt.Errorf("failed to write swarm to Redis: %w", err), fields...)
	}

	if updated.State != current.State {
		fields = append(fields,
			zap.String("from_state", string(current.State)),
			zap.String("to_state", string(updated.State)))
	}
	return &updated, s.finish(op, nil, fields...)
}

// DeleteSwarm removes the swarm from its indexes and then deletes the record.
// Deleting a swarm that does not exist is a no-op.
func (s *Store) DeleteSwarm(ctx context.Context, id string) error {
	fields := []zap.Field{zap.String("swarm_id", id)}

	unlock := s.locks.Lock(SwarmKey(id))
	defer unlock()

	current, err := s.loadSwarm(ctx, id, false)
	if err != nil {
		if IsNotFound(err) {
			s.logger.Debug("DeleteSwarm skipped: swarm does not exist", fields...)
			return s.finish(opDeleteSwarm, nil, fields...)
		}
		return s.finish(opDeleteSwarm, fmt.Errorf("failed to read swarm: %w", err), fields...)
	}

	err = s.write(ctx, func(w Writer) error {
		if err := s.unindexSwarm(ctx, w, current); err != nil {
			return err
		}
		return w.Del(ctx, SwarmKey(id))
	})
	if err != nil {
		return s.finish(opDeleteSwarm, fmt.Errorf("failed to delete swarm: %w", err), fields...)
	}
	return s.finish(opDeleteSwarm, nil, fields...)
}

// GetSwarmState returns the swarm's state, or StateUninitialized if the swarm
// cannot be read.
func (s *Store) GetSwarmState(ctx context.Context, id string) SwarmState {
	swarm := s.GetSwarm(ctx, id)
	if swarm == nil || swarm.State == "" {
		return StateUninitialized
	}
	return swarm.State
}

// UpdateSwarmState writes a new lifecycle state. Any known state may follow any
// other; transition rules belong to the caller.
func (s *Store) UpdateSwarmState(ctx context.Context, id string, state SwarmState) error {
	if err := state.Validate(); err != nil {
		return s.finish(opUpdateSwarmState, err, zap.String("swarm_id", id))
	}
	_, err := s.updateSwarm(ctx, opUpdateSwarmState, id, Patch{"state": state})
	return err
}

// GetTeam returns the team formation embedded in the swarm record, or nil.
func (s *Store) GetTeam(ctx context.Context, id string) *TeamFormation {
	swarm := s.GetSwarm(ctx, id)
	if swarm == nil {
		return nil
	}
	return swarm.Team
}

// UpdateTeam replaces the swarm's embedded team formation.
func (s *Store) UpdateTeam(ctx context.Context, id string, team *TeamFormation) error {
	_, err := s.updateSwarm(ctx, opUpdateTeam, id, Patch{"team": team})
	return err
}

// loadSwarm reads and decodes a swarm record, returning an error matching
// ErrNotFound when it is absent.
func (s *Store) loadSwarm(ctx context.Context, id string, refresh bool) (*Swarm, error) {
	var swarm Swarm
	if err := s.readRecord(ctx, SwarmKey(id), &swarm, refresh); err != nil {
		return nil, err
	}
	return &swarm, nil
}
