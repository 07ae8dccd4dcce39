package config

import (
	"io"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jmgilman/go/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GRIDCACHE_"

const (
	DefaultRedisAddr     = "localhost:6379"
	DefaultNATSURL       = "nats://127.0.0.1:4222"
	DefaultKeyPrefix     = "gridcache"
	defaultShards        = 64
	defaultWindowEntries = 10000
	defaultEntrySize     = 512
	defaultNumCounters   = 100_000
	defaultMaxCost       = 10_000
	defaultBufferItems   = 64
)

// LoadOptions tunes Load.
type LoadOptions struct {
	// Environment replaces the process environment for overrides. Nil reads os.Environ.
	Environment map[string]string
	// SkipEnv disables environment overrides altogether.
	SkipEnv bool
}

// Load decodes r, applies environment overrides and built-in defaults and
// validates the result. An empty stream yields the built-in defaults.
func Load(r io.Reader, opts LoadOptions) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, errors.CodeInvalidConfig, "decode cache config")
	}

	if !opts.SkipEnv {
		if err := applyEnv(&cfg, opts.Environment); err != nil {
			return Config{}, err
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	targets := []struct {
		prefix string
		v      any
	}{
		{EnvPrefix + "REDIS_", &cfg.Redis},
		{EnvPrefix + "VALKEY_", &cfg.Valkey},
		{EnvPrefix + "JETSTREAM_", &cfg.JetStream},
	}
	for _, t := range targets {
		o := env.Options{Prefix: t.prefix, Environment: environ}
		if err := env.ParseWithOptions(t.v, o); err != nil {
			return errors.Wrapf(err, errors.CodeInvalidConfig, "environment overrides (%s*)", t.prefix)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Default = merge(c.Default, CacheConfig{
		Backend:    BackendBigCache,
		Expiration: new(time.Duration),
		BigCache: BigCacheConfig{
			Shards:             defaultShards,
			MaxEntriesInWindow: defaultWindowEntries,
			MaxEntrySize:       defaultEntrySize,
		},
		Ristretto: RistrettoConfig{
			NumCounters: defaultNumCounters,
			MaxCost:     defaultMaxCost,
			BufferItems: defaultBufferItems,
		},
	})

	if len(c.Redis.Addrs) == 0 {
		c.Redis.Addrs = []string{DefaultRedisAddr}
	}
	c.Redis.Prefix = coalesce(c.Redis.Prefix, DefaultKeyPrefix)
	if len(c.Valkey.Addrs) == 0 {
		c.Valkey.Addrs = []string{DefaultRedisAddr}
	}
	c.Valkey.Prefix = coalesce(c.Valkey.Prefix, DefaultKeyPrefix)
	c.JetStream.URL = coalesce(c.JetStream.URL, DefaultNATSURL)
	c.JetStream.BucketPrefix = coalesce(c.JetStream.BucketPrefix, DefaultKeyPrefix)
	c.JetStream.Replicas = coalesce(c.JetStream.Replicas, 1)
}

// Validate checks the effective settings of the default template and of
// every declared cache.
func (c Config) Validate() error {
	if err := validateCache("default", c.Default); err != nil {
		return err
	}
	for _, name := range c.Declared() {
		if name == "" {
			return errors.New(errors.CodeInvalidConfig, "cache name must not be empty")
		}
		if err := validateCache(name, c.CacheFor(name)); err != nil {
			return err
		}
	}
	if c.JetStream.Replicas < 0 {
		return errors.Newf(errors.CodeInvalidConfig, "jetstream.replicas must be >= 0, got %d", c.JetStream.Replicas)
	}
	return nil
}

func validateCache(name string, cc CacheConfig) error {
	fail := func(format string, args ...any) error {
		return errors.WithContext(errors.Newf(errors.CodeInvalidConfig, format, args...), "cache", name)
	}
	if !cc.Backend.valid() {
		return fail("unknown backend %q", cc.Backend)
	}
	if cc.TTL() < 0 {
		return fail("expiration must be >= 0, got %s", cc.TTL())
	}
	switch cc.Backend {
	case BackendBigCache:
		s := cc.BigCache.Shards
		if s <= 0 || s&(s-1) != 0 {
			return fail("bigcache.shards must be a power of two, got %d", s)
		}
		if cc.BigCache.MaxEntriesInWindow < 0 || cc.BigCache.MaxEntrySize < 0 || cc.BigCache.HardMaxCacheSizeMB < 0 {
			return fail("bigcache sizes must be >= 0")
		}
	case BackendRistretto:
		r := cc.Ristretto
		if r.NumCounters <= 0 || r.MaxCost <= 0 || r.BufferItems <= 0 {
			return fail("ristretto num_counters, max_cost and buffer_items must be > 0")
		}
	}
	return nil
}
