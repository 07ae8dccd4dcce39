// Package provider defines the grid engine abstraction used by gridcache.
//
// A Store is one named cache living inside an engine. A Container hands out
// stores by name. A Manager is a Container that also tracks which caches it
// knows about, starts them, and can be stopped as a whole.
//
// Stores MUST be byte-for-byte transparent: Get must return exactly the bytes
// previously passed to Put for a key (no prepended/appended metadata, no
// re-encoding, no mutation). gridcache frames values itself and treats any
// foreign bytes as corrupt.
package provider

import (
	"context"
)

// Store is a named byte store. Must be safe for concurrent use.
type Store interface {
	// Name returns the cache name this store was resolved under.
	Name() string

	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss or expiry.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key using the store's configured expiration.
	// Returns ok=false when the store rejected the write under pressure.
	Put(ctx context.Context, key string, value []byte) (ok bool, err error)

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Clear removes every entry; the store remains usable.
	Clear(ctx context.Context) error

	// Size returns the current entry count.
	Size(ctx context.Context) (int, error)

	// Keys returns a snapshot of the current keys. Order is unspecified.
	Keys(ctx context.Context) ([]string, error)

	// Close releases resources held by this store only.
	Close(ctx context.Context) error
}

// Container resolves stores by name. Whether an unknown name is created
// transparently is up to the implementation.
type Container interface {
	GetCache(ctx context.Context, name string) (Store, error)
}

// Manager is a Container with explicit cache lifecycle.
type Manager interface {
	Container

	// CacheNames lists the caches the manager knows about (declared or created).
	CacheNames(ctx context.Context) ([]string, error)

	// CreateCache creates the named cache if absent, starts it and returns it.
	CreateCache(ctx context.Context, name string) (Store, error)

	// StartCaches starts the named caches. Starting a running cache is a no-op.
	StartCaches(ctx context.Context, names ...string) error

	// Stop stops every cache and releases engine resources.
	Stop(ctx context.Context) error
}
