// Package redis is a remote Store over go-redis. Entries of a cache live under
// "<prefix>:<cache>:<key>" so several caches share one database.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/gridcache/internal/util"
	pr "github.com/unkn0wn-root/gridcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

const scanCount = 512

type Redis struct {
	rdb         goredis.UniversalClient
	name        string
	prefix      string
	ttl         time.Duration
	closeClient bool
}

var _ pr.Store = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// Prefix namespaces every key; defaults to none.
	Prefix string
	// Expiration is applied to every Put; 0 = never expire.
	Expiration  time.Duration
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(name string, cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{
		rdb:         cfg.Client,
		name:        name,
		prefix:      cfg.Prefix,
		ttl:         max(cfg.Expiration, 0),
		closeClient: cfg.CloseClient,
	}, nil
}

func (p *Redis) Name() string { return p.name }

func (p *Redis) key(k string) string { return util.StorageKey(p.prefix, p.name, k) }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Put(ctx context.Context, key string, value []byte) (bool, error) {
	if err := p.rdb.Set(ctx, p.key(key), value, p.ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Remove(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.key(key)).Err()
}

// Clear deletes every key of this cache. Keys are deleted one per command
// so cluster deployments never see a cross-slot DEL.
func (p *Redis) Clear(ctx context.Context) error {
	return p.scan(ctx, func(c goredis.UniversalClient, keys []string) error {
		pipe := c.Pipeline()
		for _, k := range keys {
			pipe.Del(ctx, k)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (p *Redis) Size(ctx context.Context) (int, error) {
	n := 0
	err := p.scan(ctx, func(_ goredis.UniversalClient, keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (p *Redis) Keys(ctx context.Context) ([]string, error) {
	var out []string
	strip := util.StoragePrefix(p.prefix, p.name)
	err := p.scan(ctx, func(_ goredis.UniversalClient, keys []string) error {
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, strip))
		}
		return nil
	})
	return out, err
}

// scan walks every key of this cache, on each master when clustered.
func (p *Redis) scan(ctx context.Context, fn func(c goredis.UniversalClient, keys []string) error) error {
	match := util.ScanPattern(p.prefix, p.name)
	walk := func(ctx context.Context, c goredis.UniversalClient) error {
		var cursor uint64
		for {
			keys, next, err := c.Scan(ctx, cursor, match, scanCount).Result()
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				if err := fn(c, keys); err != nil {
					return err
				}
			}
			if next == 0 {
				return nil
			}
			cursor = next
		}
	}
	if cc, ok := p.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, c *goredis.Client) error {
			return walk(ctx, c)
		})
	}
	return walk(ctx, p.rdb)
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
