// Package ristretto is an in-process Store backed by dgraph-io/ristretto.
//
// Ristretto cannot enumerate its contents, so the store keeps a key index.
// Put indexes a key after its write has landed; eviction and rejection
// callbacks, Remove and Keys unindex it. Removals carry the sequence number
// they observed and never undo a newer Put, so a live key is always indexed.
// The index may briefly hold keys that are gone; Keys filters those out.
package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"
	"github.com/dgraph-io/ristretto/z"

	pr "github.com/unkn0wn-root/gridcache/provider"
)

var ErrInvalidConfig = errors.New("ristretto provider: invalid config")

type Store struct {
	name string
	ttl  time.Duration
	c    *rc.Cache

	mu    sync.Mutex
	seq   uint64
	index map[uint64]indexed
}

type indexed struct {
	key      string
	conflict uint64
	seq      uint64 // bumped by every Put that lands
}

var _ pr.Store = (*Store)(nil)

type Config struct {
	// Expiration is applied to every Put; 0 = never expire.
	Expiration time.Duration
	// MaxCost bounds the entry count: every entry costs 1.
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(name string, cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 || cfg.Expiration < 0 {
		return nil, ErrInvalidConfig
	}
	s := &Store{
		name:  name,
		ttl:   cfg.Expiration,
		index: make(map[uint64]indexed),
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
		OnEvict:     s.forget,
		OnReject:    s.forget,
		// cost is the entry count, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	s.c = c
	return s, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) (bool, error) {
	if !s.c.SetWithTTL(key, value, 1, s.ttl) {
		// dropped before admission; a previous value stays indexed
		return false, nil
	}
	// Wait returns once the write and the callbacks it caused have run, so
	// an entry indexed below cannot be removed by them.
	s.c.Wait()
	if _, ok := s.c.Get(key); ok {
		s.track(key)
	}
	return true, nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	seen := s.seen(key)
	s.c.Del(key)
	s.c.Wait()
	s.drop(key, seen)
	return nil
}

func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	mark := s.seq
	s.mu.Unlock()

	// Clear fires OnEvict, which takes mu: do not hold it here.
	s.c.Clear()

	s.mu.Lock()
	for h, e := range s.index {
		if e.seq <= mark {
			delete(s.index, h)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Size(ctx context.Context) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Keys returns the indexed keys still present in the cache; keys that
// expired since they were indexed are pruned on the way.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	candidates := make([]indexed, 0, len(s.index))
	for _, e := range s.index {
		candidates = append(candidates, e)
	}
	s.mu.Unlock()

	keys := make([]string, 0, len(candidates))
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := s.c.Get(e.key); ok {
			keys = append(keys, e.key)
			continue
		}
		s.drop(e.key, e.seq)
	}
	return keys, nil
}

func (s *Store) Close(context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's counters; nil unless Config.Metrics was set.
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }

func (s *Store) forget(item *rc.Item) {
	s.mu.Lock()
	if e, ok := s.index[item.Key]; ok && e.conflict == item.Conflict {
		delete(s.index, item.Key)
	}
	s.mu.Unlock()
}

// track indexes key under a fresh sequence number.
func (s *Store) track(key string) {
	h, conflict := z.KeyToHash(key)
	s.mu.Lock()
	s.seq++
	s.index[h] = indexed{key: key, conflict: conflict, seq: s.seq}
	s.mu.Unlock()
}

// seen returns the sequence number key is indexed under, 0 if none.
func (s *Store) seen(key string) uint64 {
	h, conflict := z.KeyToHash(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.index[h]; ok && e.conflict == conflict {
		return e.seq
	}
	return 0
}

// drop unindexes key only if no Put re-indexed it after seq was observed.
func (s *Store) drop(key string, seq uint64) {
	h, conflict := z.KeyToHash(key)
	s.mu.Lock()
	if e, ok := s.index[h]; ok && e.conflict == conflict && e.seq == seq {
		delete(s.index, h)
	}
	s.mu.Unlock()
}
