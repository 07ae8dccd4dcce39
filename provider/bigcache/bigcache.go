// Package bigcache is an in-process Store backed by allegro/bigcache.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/gridcache/provider"
)

// forever stands in for "no expiration"; bigcache always needs a life window.
const forever = 100 * 365 * 24 * time.Hour

type Store struct {
	name string
	c    *bc.BigCache
}

var _ pr.Store = (*Store)(nil)

type Config struct {
	// Expiration is the lifetime of every entry; 0 = never expire.
	Expiration         time.Duration
	Shards             int // power of two
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	Logger             bc.Logger
}

func New(ctx context.Context, name string, cfg Config) (*Store, error) {
	life := cfg.Expiration
	if life <= 0 {
		life = forever
	}
	conf := bc.DefaultConfig(life)
	if cfg.Expiration <= 0 {
		conf.CleanWindow = 0
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	if cfg.Logger != nil {
		conf.Logger = cfg.Logger
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Store{name: name, c: c}, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) (bool, error) {
	// no per-entry TTL: the life window set at construction applies
	if err := s.c.Set(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *Store) Clear(context.Context) error { return s.c.Reset() }

func (s *Store) Size(context.Context) (int, error) { return s.c.Len(), nil }

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, s.c.Len())
	it := s.c.Iterator()
	for it.SetNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := it.Value()
		if err != nil {
			// entry vanished between SetNext and Value
			if errors.Is(err, bc.ErrInvalidIteratorState) || errors.Is(err, bc.ErrCannotRetrieveEntry) {
				continue
			}
			return nil, err
		}
		keys = append(keys, e.Key())
	}
	return keys, nil
}

func (s *Store) Close(context.Context) error { return s.c.Close() }

// Stats exposes bigcache's hit/miss counters.
func (s *Store) Stats() bc.Stats { return s.c.Stats() }
