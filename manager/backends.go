package manager

import (
	"context"
	"sync"

	"github.com/jmgilman/go/errors"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/gridcache/config"
	pr "github.com/unkn0wn-root/gridcache/provider"
	"github.com/unkn0wn-root/gridcache/provider/bigcache"
	"github.com/unkn0wn-root/gridcache/provider/jetstream"
	"github.com/unkn0wn-root/gridcache/provider/redis"
	"github.com/unkn0wn-root/gridcache/provider/ristretto"
	vk "github.com/unkn0wn-root/gridcache/provider/valkey"
)

func (m *Manager) build(ctx context.Context, name string, cc config.CacheConfig) (pr.Store, error) {
	switch cc.Backend {
	case config.BackendBigCache:
		s, err := bigcache.New(ctx, name, bigcache.Config{
			Expiration:         cc.TTL(),
			Shards:             cc.BigCache.Shards,
			MaxEntriesInWindow: cc.BigCache.MaxEntriesInWindow,
			MaxEntrySize:       cc.BigCache.MaxEntrySize,
			HardMaxCacheSizeMB: cc.BigCache.HardMaxCacheSizeMB,
			Logger:             zap.NewStdLog(m.log.With(zap.String("cache", name))),
		})
		return s, wrapOpen(err, name)

	case config.BackendRistretto:
		s, err := ristretto.New(name, ristretto.Config{
			Expiration:  cc.TTL(),
			NumCounters: cc.Ristretto.NumCounters,
			MaxCost:     cc.Ristretto.MaxCost,
			BufferItems: cc.Ristretto.BufferItems,
			Metrics:     cc.Ristretto.Metrics,
		})
		return s, wrapOpen(err, name)

	case config.BackendRedis:
		rdb, err := m.clients.redis()
		if err != nil {
			return nil, wrapConnect(err, name, "redis")
		}
		s, err := redis.New(name, redis.Config{Client: rdb, Prefix: m.cfg.Redis.Prefix, Expiration: cc.TTL()})
		return s, wrapOpen(err, name)

	case config.BackendValkey:
		client, err := m.clients.valkey()
		if err != nil {
			return nil, wrapConnect(err, name, "valkey")
		}
		s, err := vk.New(name, vk.Config{Client: client, Prefix: m.cfg.Valkey.Prefix, Expiration: cc.TTL()})
		return s, wrapOpen(err, name)

	case config.BackendJetStream:
		nc, err := m.clients.nats()
		if err != nil {
			return nil, wrapConnect(err, name, "jetstream")
		}
		s, err := jetstream.Open(ctx, name, jetstream.Config{
			Conn:         nc,
			BucketPrefix: m.cfg.JetStream.BucketPrefix,
			Expiration:   cc.TTL(),
			Replicas:     m.cfg.JetStream.Replicas,
		})
		return s, wrapOpen(err, name)
	}
	return nil, errors.WithContext(errors.Newf(errors.CodeInvalidConfig, "unknown backend %q", cc.Backend), "cache", name)
}

func wrapOpen(err error, name string) error {
	if err == nil {
		return nil
	}
	return errors.WithContext(errors.Wrap(err, errors.CodeUnavailable, "start cache"), "cache", name)
}

func wrapConnect(err error, name, backend string) error {
	return errors.WithContextMap(errors.Wrap(err, errors.CodeNetwork, "connect backend"), map[string]interface{}{
		"cache":   name,
		"backend": backend,
	})
}

// clients holds the remote connections shared by every cache of a backend.
type clients struct {
	cfg config.Config
	log *zap.Logger

	mu     sync.Mutex
	rdb    goredis.UniversalClient
	vk     valkey.Client
	nc     *nats.Conn
	closed bool
}

func newClients(cfg config.Config, log *zap.Logger) *clients {
	return &clients{cfg: cfg, log: log}
}

func (c *clients) redis() (goredis.UniversalClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrStopped
	}
	if c.rdb == nil {
		rc := c.cfg.Redis
		c.rdb = goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    rc.Addrs,
			Username: rc.Username,
			Password: rc.Password,
			DB:       rc.DB,
		})
		c.log.Info("redis client created", zap.Strings("addrs", rc.Addrs), zap.Int("db", rc.DB))
	}
	return c.rdb, nil
}

func (c *clients) valkey() (valkey.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrStopped
	}
	if c.vk == nil {
		vc := c.cfg.Valkey
		client, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: vc.Addrs,
			Username:    vc.Username,
			Password:    vc.Password,
			SelectDB:    vc.DB,
		})
		if err != nil {
			return nil, err
		}
		c.vk = client
		c.log.Info("valkey client created", zap.Strings("addrs", vc.Addrs), zap.Int("db", vc.DB))
	}
	return c.vk, nil
}

func (c *clients) nats() (*nats.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrStopped
	}
	if c.nc == nil {
		nc, err := nats.Connect(c.cfg.JetStream.URL, nats.Name("gridcache"))
		if err != nil {
			return nil, err
		}
		c.nc = nc
		c.log.Info("nats connection established", zap.String("url", nc.ConnectedUrlRedacted()))
	}
	return c.nc, nil
}

func (c *clients) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var first error
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			c.log.Warn("closing redis client failed", zap.Error(err))
			first = errors.Wrap(err, errors.CodeNetwork, "close redis client")
		}
	}
	if c.vk != nil {
		c.vk.Close()
	}
	if c.nc != nil {
		if err := c.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.log.Warn("draining nats connection failed", zap.Error(err))
			if first == nil {
				first = errors.Wrap(err, errors.CodeNetwork, "drain nats connection")
			}
		}
	}
	return first
}
