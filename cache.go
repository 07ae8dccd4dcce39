package gridcache

import (
	"context"

	c "github.com/unkn0wn-root/gridcache/codec"
	"github.com/unkn0wn-root/gridcache/internal/wire"
	pr "github.com/unkn0wn-root/gridcache/provider"
)

type cache[V any] struct {
	store pr.Store
	name  string
	codec c.Codec[V]
	log   Logger
	hooks Hooks
}

func newCache[V any](opts CacheOptions[V]) (*cache[V], error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}

	cc := &cache[V]{
		store: opts.Store,
		name:  opts.Store.Name(),
		codec: opts.Codec,
	}
	if cc.codec == nil {
		cc.codec = c.JSON[V]{}
	}
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return cc, nil
}

func (cc *cache[V]) Name() string { return cc.name }

func (cc *cache[V]) String() string { return "Cache [" + cc.name + "]" }

func (cc *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	cc.log.Debug("getting object from cache", Fields{"cache": cc.name, "key": key})
	if key == "" {
		var zero V
		return zero, false, nil
	}
	v, ok, err := cc.get(ctx, "get", key)
	if err != nil {
		return v, false, err
	}
	if !ok {
		cc.log.Debug("object not found", Fields{"cache": cc.name, "key": key})
	}
	cc.hooks.Lookup(cc.name, ok)
	return v, ok, nil
}

// get reads and decodes key without reporting a lookup; failures are
// attributed to op.
func (cc *cache[V]) get(ctx context.Context, op, key string) (V, bool, error) {
	var zero V
	raw, ok, err := cc.store.Get(ctx, key)
	if err != nil {
		return zero, false, cc.fail(op, key, err)
	}
	if !ok {
		return zero, false, nil
	}

	// present but not retrievable is an error, not a miss
	payload, err := wire.DecodeValue(raw)
	if err != nil {
		return zero, false, cc.fail(op, key, err)
	}
	v, err := cc.codec.Decode(payload)
	if err != nil {
		return zero, false, cc.fail(op, key, err)
	}
	return v, true, nil
}

func (cc *cache[V]) Put(ctx context.Context, key string, value V) (V, bool, error) {
	var zero V
	cc.log.Debug("putting object in cache", Fields{"cache": cc.name, "key": key})
	if key == "" {
		return zero, false, cc.fail("put", key, ErrEmptyKey)
	}

	prev, had, err := cc.get(ctx, "put", key)
	if err != nil {
		return zero, false, err
	}
	payload, err := cc.codec.Encode(value)
	if err != nil {
		return zero, false, cc.fail("put", key, err)
	}
	ok, err := cc.store.Put(ctx, key, wire.EncodeValue(payload))
	if err != nil {
		return zero, false, cc.fail("put", key, err)
	}
	if !ok {
		cc.log.Debug("put rejected by store (pressure)", Fields{"cache": cc.name, "key": key})
		cc.hooks.SetRejected(cc.name)
	}
	return prev, had, nil
}

func (cc *cache[V]) Remove(ctx context.Context, key string) (V, bool, error) {
	var zero V
	cc.log.Debug("removing object from cache", Fields{"cache": cc.name, "key": key})
	if key == "" {
		return zero, false, nil
	}

	prev, had, err := cc.get(ctx, "remove", key)
	if err != nil {
		return zero, false, err
	}
	if err := cc.store.Remove(ctx, key); err != nil {
		return zero, false, cc.fail("remove", key, err)
	}
	return prev, had, nil
}

func (cc *cache[V]) Clear(ctx context.Context) error {
	cc.log.Debug("clearing all objects from cache", Fields{"cache": cc.name})
	if err := cc.store.Clear(ctx); err != nil {
		return cc.fail("clear", "", err)
	}
	return nil
}

func (cc *cache[V]) Size(ctx context.Context) (int, error) {
	n, err := cc.store.Size(ctx)
	if err != nil {
		return 0, cc.fail("size", "", err)
	}
	return n, nil
}

func (cc *cache[V]) Keys(ctx context.Context) (KeySet, error) {
	keys, err := cc.store.Keys(ctx)
	if err != nil {
		return KeySet{}, cc.fail("keys", "", err)
	}
	return newKeySet(keys), nil
}

func (cc *cache[V]) Values(ctx context.Context) ([]V, error) {
	keys, err := cc.store.Keys(ctx)
	if err != nil {
		return nil, cc.fail("values", "", err)
	}
	set := newKeySet(keys)
	out := make([]V, 0, set.Len())
	for k := range set.All() {
		v, ok, err := cc.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (cc *cache[V]) fail(op, key string, err error) error {
	werr := wrapErr(op, cc.name, key, err)
	cc.hooks.OperationFailed(cc.name, op, err)
	return werr
}
