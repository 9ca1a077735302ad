package swarmstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// StateStore is the full contract the orchestration engine consumes.
type StateStore interface {
	// Swarm lifecycle
	CreateSwarm(ctx context.Context, id string, swarm *Swarm) error
	GetSwarm(ctx context.Context, id string) *Swarm
	UpdateSwarm(ctx context.Context, id string, patch Patch) (*Swarm, error)
	DeleteSwarm(ctx context.Context, id string) error
	GetSwarmState(ctx context.Context, id string) SwarmState
	UpdateSwarmState(ctx context.Context, id string, state SwarmState) error
	GetTeam(ctx context.Context, id string) *TeamFormation
	UpdateTeam(ctx context.Context, id string, team *TeamFormation) error

	// Secondary indexes
	GetSwarmsByState(ctx context.Context, state SwarmState) []*Swarm
	GetSwarmsByUser(ctx context.Context, userID string) []*Swarm
	ListActiveSwarms(ctx context.Context) []*Swarm

	// Team registry
	CreateTeam(ctx context.Context, swarmID string, team *SwarmTeam) error
	GetTeamByID(ctx context.Context, swarmID, teamID string) *SwarmTeam
	UpdateTeamByID(ctx context.Context, swarmID, teamID string, patch Patch) (*SwarmTeam, error)
	DeleteTeam(ctx context.Context, swarmID, teamID string) error
	ListTeams(ctx context.Context, swarmID string) []*SwarmTeam

	// Agent registry
	CreateAgent(ctx context.Context, swarmID string, agent *SwarmAgent) error
	GetAgent(ctx context.Context, swarmID, agentID string) *SwarmAgent
	UpdateAgent(ctx context.Context, swarmID, agentID string, patch Patch) (*SwarmAgent, error)
	DeleteAgent(ctx context.Context, swarmID, agentID string) error
	ListAgents(ctx context.Context, swarmID string) []*SwarmAgent

	// Blackboard
	AddBlackboardItem(ctx context.Context, swarmID string, item *BlackboardItem) (string, error)
	GetBlackboardItem(ctx context.Context, swarmID, itemID string) *BlackboardItem
	GetBlackboardItems(ctx context.Context, swarmID string, filter BlackboardFilter) []*BlackboardItem
	UpdateBlackboardItem(ctx context.Context, swarmID, itemID string, patch Patch) (*BlackboardItem, error)
	RemoveBlackboardItem(ctx context.Context, swarmID, itemID string) error

	// Resource allocation
	AllocateResource(ctx context.Context, swarmID string, resource SwarmResource, consumerID string) error
	ReleaseResource(ctx context.Context, swarmID, resourceID, consumerID string) error
	GetResourceAllocation(ctx context.Context, swarmID, resourceID string) []string
}

// Store persists swarm state in a Backend.
//
// Reads never fail: a missing record and a backend error both yield nil or an
// empty slice, with the error logged. Writes log and return their error.
// Update operations return a *NotFoundError when the target does not exist.
//
// The store is safe for concurrent use. Read-modify-write operations are
// serialized per record within one Store; writers in other processes are not
// coordinated.
type Store struct {
	backend         Backend
	logger          *zap.Logger
	recorder        Recorder
	ttl             time.Duration
	now             func() time.Time
	exhaustiveSweep bool
	locks           *keyedMutex
}

var _ StateStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTTL overrides DefaultTTL for every key the store writes.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the time source used for createdAt/updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithExhaustiveIndexSweep makes state changes remove the swarm from every
// state index instead of only the one recorded before the update.
func WithExhaustiveIndexSweep() Option {
	return func(s *Store) {
		s.exhaustiveSweep = true
	}
}

// New creates a store over backend.
// Returns an error if backend is nil.
func New(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}

	s := &Store{
		backend:  backend,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		ttl:      DefaultTTL,
		now:      time.Now,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Backend returns the backend the store writes to.
func (s *Store) Backend() Backend {
	return s.backend
}

// TTL returns the expiry applied to stored keys.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// write runs fn atomically when the backend supports it, otherwise directly
// against the backend. In the direct case a failure part way through leaves
// earlier writes in place.
func (s *Store) write(ctx context.Context, fn func(w Writer) error) error {
	if tx, ok := s.backend.(Transactional); ok {
		return tx.Atomically(ctx, fn)
	}
	return fn(s.backend)
}

// readRecord loads and decodes the record at key. When refresh is set a
// successful read also resets the key's TTL; a failed refresh is logged only.
func (s *Store) readRecord(ctx context.Context, key string, out any, refresh bool) error {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := decodeRecord(data, out); err != nil {
		return err
	}
	if refresh {
		if err := s.backend.Expire(ctx, key, s.ttl); err != nil {
			s.logger.Warn("failed to refresh TTL", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// addMember adds member to a set and resets the set's TTL.
func (s *Store) addMember(ctx context.Context, w Writer, setKey, member string) error {
	if err := w.SAdd(ctx, setKey, member); err != nil {
		return err
	}
	return w.Expire(ctx, setKey, s.ttl)
}

// stamp returns the current time, never earlier than prev.
func (s *Store) stamp(prev time.Time) time.Time {
	now := s.now().UTC()
	if now.Before(prev) {
		return prev
	}
	return now
}

// finish records and logs the outcome of a write operation and returns err.
func (s *Store) finish(op string, err error, fields ...zap.Field) error {
	s.recorder.ObserveOperation(op, err)
	switch {
	case err == nil:
		s.logger.Debug(op+" succeeded", fields...)
	case IsNotFound(err):
		s.logger.Warn(op+" failed", append(fields, zap.Error(err))...)
	default:
		s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	}
	return err
}

// degrade records and logs a failed read that is converted to a safe default.
func (s *Store) degrade(op string, err error, fields ...zap.Field) {
	s.recorder.ObserveOperation(op, err)
	s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
}

// Generic helpers shared by the team registry, agent registry and blackboard.
// Each entity is a JSON record at key plus its id in a swarm-scoped set.

func createMember(ctx context.Context, s *Store, op, key, setKey, id string, record any, fields []zap.Field) error {
	data, err := encodeRecord(record)
	if err != nil {
		return s.finish(op, err, fields...)
	}

	err = s.write(ctx, func(w Writer) error {
		if err := w.Set(ctx, key, data, s.ttl); err != nil {
			return err
		}
		return s.addMember(ctx, w, setKey, id)
	})
	if err != nil {
		return s.finish(op, fmt.Errorf("failed to write %s to Redis: %w", key, err), fields...)
	}
	return s.finish(op, nil, fields...)
}

func getMember[T any](ctx context.Context, s *Store, op, key string, fields []zap.Field) *T {
	var record T
	if err := s.readRecord(ctx, key, &record, true); err != nil {
		if !IsNotFound(err) {
			s.degrade(op, err, fields...)
		}
		return nil
	}
	s.recorder.ObserveOperation(op, nil)
	return &record
}

func updateMember[T any](ctx context.Context, s *Store, op string, notFound *NotFoundError, key string, patch Patch, touch func(updated, current *T), fields []zap.Field) (*T, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	var current T
	if err := s.readRecord(ctx, key, &current, false); err != nil {
		if IsNotFound(err) {
			return nil, s.finish(op, notFound, fields...)
		}
		return nil, s.finish(op, fmt.Errorf("failed to read %s: %w", key, err), fields...)
	}

	var updated T
	if err := applyPatch(&current, patch, &updated); err != nil {
		return nil, s.finish(op, err, fields...)
	}
	touch(&updated, &current)

	data, err := encodeRecord(&updated)
	if err != nil {
		return nil, s.finish(op, err, fields...)
	}
	if err := s.backend.Set(ctx, key, data, s.ttl); err != nil {
		return nil, s.finish(op, fmt.Errorf("failed to write %s to Redis: %w", key, err), fields...)
	}
	return &updated, s.finish(op, nil, fields...)
}

func deleteMember(ctx context.Context, s *Store, op, key, setKey, id string, fields []zap.Field) error {
	unlock := s.locks.Lock(key)
	defer unlock()

	err := s.write(ctx, func(w Writer) error {
		if err := w.SRem(ctx, setKey, id); err != nil {
			return err
		}
		return w.Del(ctx, key)
	})
	if err != nil {
		return s.finish(op, fmt.Errorf("failed to delete %s: %w", key, err), fields...)
	}
	return s.finish(op, nil, fields...)
}

// listMembers resolves every id in setKey. Members that cannot be read are
// dropped from the result but left in the set.
func listMembers[T any](ctx context.Context, s *Store, op, setKey string, keyFor func(id string) string, refresh bool, fields []zap.Field) []*T {
	ids, err := s.backend.SMembers(ctx, setKey)
	if err != nil {
		s.degrade(op, fmt.Errorf("failed to read %s: %w", setKey, err), fields...)
		return []*T{}
	}
	sort.Strings(ids)

	records := make([]*T, 0, len(ids))
	for _, id := range ids {
		var record T
		if err := s.readRecord(ctx, keyFor(id), &record, refresh); err != nil {
			s.logger.Debug("skipping unresolvable member",
				append(fields, zap.String("member", id), zap.Error(err))...)
			continue
		}
		records = append(records, &record)
	}
	s.recorder.ObserveOperation(op, nil)
	return records
}
