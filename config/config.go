// Package config is the configuration model of the default grid manager.
//
// A config stream is YAML:
//
//	default:              # template for every cache not listed under caches
//	  backend: bigcache
//	  expiration: 0s      # 0 = never expire
//	caches:
//	  authorizationCache: {backend: ristretto, expiration: 30m}
//	redis: {addrs: ["localhost:6379"], prefix: gridcache}
//
// Fields a cache leaves unset are inherited from default; fields default
// leaves unset fall back to built-in values. Connection settings can be
// overridden from the environment (GRIDCACHE_REDIS_ADDRS, GRIDCACHE_VALKEY_PASSWORD,
// GRIDCACHE_JETSTREAM_URL, ...).
package config

import (
	"sort"
	"time"
)

type Backend string

const (
	BackendBigCache  Backend = "bigcache"
	BackendRistretto Backend = "ristretto"
	BackendRedis     Backend = "redis"
	BackendValkey    Backend = "valkey"
	BackendJetStream Backend = "jetstream"
)

func (b Backend) valid() bool {
	switch b {
	case BackendBigCache, BackendRistretto, BackendRedis, BackendValkey, BackendJetStream:
		return true
	}
	return false
}

// Remote reports whether the backend talks to a server.
func (b Backend) Remote() bool {
	return b == BackendRedis || b == BackendValkey || b == BackendJetStream
}

type Config struct {
	Default   CacheConfig            `yaml:"default"`
	Caches    map[string]CacheConfig `yaml:"caches"`
	Redis     RedisConfig            `yaml:"redis"`
	Valkey    ValkeyConfig           `yaml:"valkey"`
	JetStream JetStreamConfig        `yaml:"jetstream"`
}

type CacheConfig struct {
	Backend Backend `yaml:"backend"`
	// Expiration applies to every entry; nil inherits, 0 never expires.
	Expiration *time.Duration  `yaml:"expiration"`
	BigCache   BigCacheConfig  `yaml:"bigcache"`
	Ristretto  RistrettoConfig `yaml:"ristretto"`
}

// TTL returns the effective expiration (0 = none).
func (c CacheConfig) TTL() time.Duration {
	if c.Expiration == nil {
		return 0
	}
	return *c.Expiration
}

type BigCacheConfig struct {
	Shards             int `yaml:"shards"` // power of two
	MaxEntriesInWindow int `yaml:"max_entries_in_window"`
	MaxEntrySize       int `yaml:"max_entry_size"`
	HardMaxCacheSizeMB int `yaml:"hard_max_cache_size_mb"` // 0 = unlimited
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
	Metrics     bool  `yaml:"metrics"`
}

type RedisConfig struct {
	Addrs    []string `yaml:"addrs" env:"ADDRS" envSeparator:","`
	Username string   `yaml:"username" env:"USERNAME"`
	Password string   `yaml:"password" env:"PASSWORD"`
	DB       int      `yaml:"db" env:"DB"`
	Prefix   string   `yaml:"prefix" env:"PREFIX"`
}

type ValkeyConfig struct {
	Addrs    []string `yaml:"addrs" env:"ADDRS" envSeparator:","`
	Username string   `yaml:"username" env:"USERNAME"`
	Password string   `yaml:"password" env:"PASSWORD"`
	DB       int      `yaml:"db" env:"DB"`
	Prefix   string   `yaml:"prefix" env:"PREFIX"`
}

type JetStreamConfig struct {
	URL          string `yaml:"url" env:"URL"`
	BucketPrefix string `yaml:"bucket_prefix" env:"BUCKET_PREFIX"`
	Replicas     int    `yaml:"replicas" env:"REPLICAS"`
}

// CacheFor returns the effective settings of the named cache: its own entry
// (if declared) with unset fields taken from Default.
func (c Config) CacheFor(name string) CacheConfig {
	own, ok := c.Caches[name]
	if !ok {
		return c.Default
	}
	return merge(own, c.Default)
}

// Declared returns the sorted names listed under caches.
func (c Config) Declared() []string {
	names := make([]string, 0, len(c.Caches))
	for n := range c.Caches {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func merge(c, def CacheConfig) CacheConfig {
	c.Backend = coalesce(c.Backend, def.Backend)
	if c.Expiration == nil {
		c.Expiration = def.Expiration
	}
	c.BigCache.Shards = coalesce(c.BigCache.Shards, def.BigCache.Shards)
	c.BigCache.MaxEntriesInWindow = coalesce(c.BigCache.MaxEntriesInWindow, def.BigCache.MaxEntriesInWindow)
	c.BigCache.MaxEntrySize = coalesce(c.BigCache.MaxEntrySize, def.BigCache.MaxEntrySize)
	c.BigCache.HardMaxCacheSizeMB = coalesce(c.BigCache.HardMaxCacheSizeMB, def.BigCache.HardMaxCacheSizeMB)
	c.Ristretto.NumCounters = coalesce(c.Ristretto.NumCounters, def.Ristretto.NumCounters)
	c.Ristretto.MaxCost = coalesce(c.Ristretto.MaxCost, def.Ristretto.MaxCost)
	c.Ristretto.BufferItems = coalesce(c.Ristretto.BufferItems, def.Ristretto.BufferItems)
	c.Ristretto.Metrics = c.Ristretto.Metrics || def.Ristretto.Metrics
	return c
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
