package gridcache

import (
	"context"

	c "github.com/unkn0wn-root/gridcache/codec"
	pr "github.com/unkn0wn-root/gridcache/provider"
)

// Cache is a named, keyed store of V values over one provider.Store.
// Every failure is returned as *Error; misses are (zero, false, nil).
type Cache[V any] interface {
	Name() string

	Get(ctx context.Context, key string) (v V, ok bool, err error)
	// Put stores value and returns the value it replaced, if any.
	Put(ctx context.Context, key string, value V) (prev V, hadPrev bool, err error)
	// Remove deletes key and returns the value it held, if any.
	// Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) (prev V, hadPrev bool, err error)
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)

	// Keys returns an immutable snapshot of the current keys.
	Keys(ctx context.Context) (KeySet, error)
	// Values reads every key of a Keys snapshot, skipping keys that
	// disappeared in between. Order follows the snapshot.
	Values(ctx context.Context) ([]V, error)

	String() string
}

// CacheOptions tune a cache handle. Only Store is required.
type CacheOptions[V any] struct {
	Store pr.Store

	Codec  c.Codec[V] // if nil, codec.JSON[V]
	Logger Logger     // if nil, NopLogger is used
	Hooks  Hooks      // if nil, NopHooks is used
}

// NewCache wraps opts.Store. It returns ErrNilStore when the store is missing.
func NewCache[V any](opts CacheOptions[V]) (Cache[V], error) {
	return newCache[V](opts)
}
