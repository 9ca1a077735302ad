package swarmstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryBackend is an in-process Transactional backend with Redis-like
// semantics for the subset of commands the store uses, including key expiry.
// It is intended for tests and single-process demos.
type MemoryBackend struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]*memEntry
}

type memEntry struct {
	value    string
	set      map[string]struct{}
	isSet    bool
	expireAt time.Time
}

var _ Transactional = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty backend. A nil clock uses time.Now.
func NewMemoryBackend(clock func() time.Time) *MemoryBackend {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryBackend{
		now:  clock,
		data: make(map[string]*memEntry),
	}
}

// Ping always succeeds.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close drops all data.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*memEntry)
	return nil
}

// TTL returns the remaining time to live of key, or 0 if the key is missing
// or has no expiry.
func (m *MemoryBackend) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil || e.expireAt.IsZero() {
		return 0
	}
	return e.expireAt.Sub(m.now())
}

// Keys returns all live keys in sorted order.
func (m *MemoryBackend) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if m.lookup(k) != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Get implements Backend.
func (m *MemoryBackend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
	}
	if e.isSet {
		return "", errWrongType(key)
	}
	return e.value, nil
}

// SMembers implements Backend.
func (m *MemoryBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return []string{}, nil
	}
	if !e.isSet {
		return nil, errWrongType(key)
	}
	members := make([]string, 0, len(e.set))
	for member := range e.set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

// Set implements Writer.
func (m *MemoryBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return m.apply(ctx, func() error { return m.set(key, value, ttl) })
}

// Expire implements Writer.
func (m *MemoryBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return m.apply(ctx, func() error { return m.expire(key, ttl) })
}

// Del implements Writer.
func (m *MemoryBackend) Del(ctx context.Context, key string) error {
	return m.apply(ctx, func() error { return m.del(key) })
}

// SAdd implements Writer.
func (m *MemoryBackend) SAdd(ctx context.Context, key, member string) error {
	return m.apply(ctx, func() error { return m.sadd(key, member) })
}

// SRem implements Writer.
func (m *MemoryBackend) SRem(ctx context.Context, key, member string) error {
	return m.apply(ctx, func() error { return m.srem(key, member) })
}

// Atomically buffers the writes issued by fn and applies them under a single
// lock acquisition. Nothing is applied if fn returns an error.
func (m *MemoryBackend) Atomically(ctx context.Context, fn func(tx Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{}
	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Like EXEC, every queued command runs; the first error is reported.
	var firstErr error
	for _, op := range tx.ops {
		if err := op(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MemoryBackend) apply(ctx context.Context, op func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return op()
}

// lookup returns the live entry for key, evicting it if expired. Caller holds mu.
func (m *MemoryBackend) lookup(key string) *memEntry {
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		delete(m.data, key)
		return nil
	}
	return e
}

func (m *MemoryBackend) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *MemoryBackend) set(key, value string, ttl time.Duration) error {
	m.data[key] = &memEntry{value: value, expireAt: m.expiry(ttl)}
	return nil
}

func (m *MemoryBackend) expire(key string, ttl time.Duration) error {
	if e := m.lookup(key); e != nil {
		e.expireAt = m.expiry(ttl)
	}
	return nil
}

func (m *MemoryBackend) del(key string) error {
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) sadd(key, member string) error {
	e := m.lookup(key)
	if e == nil {
		e = &memEntry{isSet: true, set: make(map[string]struct{})}
		m.data[key] = e
	}
	if !e.isSet {
		return errWrongType(key)
	}
	e.set[member] = struct{}{}
	return nil
}

func (m *MemoryBackend) srem(key, member string) error {
	e := m.lookup(key)
	if e == nil {
		return nil
	}
	if !e.isSet {
		return errWrongType(key)
	}
	delete(e.set, member)
	if len(e.set) == 0 {
		delete(m.data, key)
	}
	return nil
}

func errWrongType(key string) error {
	return fmt.Errorf("WRONGTYPE operation against key %s holding the wrong kind of value", key)
}

// memTx queues operations for MemoryBackend.Atomically.
type memTx struct {
	ops []func(m *MemoryBackend) error
}

func (t *memTx) Set(_ context.Context, key, value string, ttl time.Duration) error {
	t.ops = append(t.ops, func(m *MemoryBackend) error { return m.set(key, value, ttl) })
	return nil
}

func (t *memTx) Expire(_ context.Context, key string, ttl time.Duration) error {
	t.ops = append(t.ops, func(m *MemoryBackend) error { return m.expire(key, ttl) })
	return nil
}

func (t *memTx) Del(_ context.Context, key string) error {
	t.ops = append(t.ops, func(m *MemoryBackend) error { return m.del(key) })
	return nil
}

func (t *memTx) SAdd(_ context.Context, key, member string) error {
	t.ops = append(t.ops, func(m *MemoryBackend) error { return m.sadd(key, member) })
	return nil
}

func (t *memTx) SRem(_ context.Context, key, member string) error {
	t.ops = append(t.ops, func(m *MemoryBackend) error { return m.srem(key, member) })
	return nil
}
