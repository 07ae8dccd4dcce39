package gridcache

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"

	c "github.com/unkn0wn-root/gridcache/codec"
	"github.com/unkn0wn-root/gridcache/internal/wire"
	pr "github.com/unkn0wn-root/gridcache/provider"
)

type memStore struct {
	name   string
	mu     sync.Mutex
	m      map[string][]byte
	reject bool
	closed bool
}

var _ pr.Store = (*memStore)(nil)

func newMemStore(name string) *memStore { return &memStore{name: name, m: make(map[string][]byte)} }

func (s *memStore) Name() string { return s.name }

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) Put(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return false, nil
	}
	s.m[key] = value
	return true, nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.m)
	return nil
}

func (s *memStore) Size(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m), nil
}

func (s *memStore) Keys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// failingStore fails every operation with err.
type failingStore struct {
	name string
	err  error
}

func (s failingStore) Name() string                                      { return s.name }
func (s failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, s.err }
func (s failingStore) Put(context.Context, string, []byte) (bool, error) { return false, s.err }
func (s failingStore) Remove(context.Context, string) error              { return s.err }
func (s failingStore) Clear(context.Context) error                       { return s.err }
func (s failingStore) Size(context.Context) (int, error)                 { return 0, s.err }
func (s failingStore) Keys(context.Context) ([]string, error)            { return nil, s.err }
func (s failingStore) Close(context.Context) error                       { return nil }

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type recHooks struct {
	NopHooks
	mu       sync.Mutex
	hits     int
	misses   int
	rejected int
	failed   []string
}

func (h *recHooks) Lookup(_ string, hit bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hit {
		h.hits++
	} else {
		h.misses++
	}
}

func (h *recHooks) SetRejected(string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected++
}

func (h *recHooks) OperationFailed(_, op string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = append(h.failed, op)
}

func newTestCache(t *testing.T, s pr.Store, hooks Hooks) Cache[user] {
	t.Helper()
	cc, err := NewCache[user](CacheOptions[user]{Store: s, Codec: c.JSON[user]{}, Hooks: hooks})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return cc
}

func TestNewCacheNilStore(t *testing.T) {
	if _, err := NewCache[user](CacheOptions[user]{}); !errors.Is(err, ErrNilStore) {
		t.Fatalf("expected ErrNilStore, got %v", err)
	}
}

func TestGetNeverInserted(t *testing.T) {
	ctx := context.Background()
	h := &recHooks{}
	cc := newTestCache(t, newMemStore("users"), h)

	v, ok, err := cc.Get(ctx, "nope")
	if err != nil || ok || v != (user{}) {
		t.Fatalf("expected clean miss, got v=%+v ok=%v err=%v", v, ok, err)
	}
	if _, ok, err := cc.Get(ctx, ""); err != nil || ok {
		t.Fatalf("empty key must be a miss: ok=%v err=%v", ok, err)
	}
	if h.misses != 1 {
		t.Fatalf("misses=%d want 1", h.misses)
	}
}

func TestPutGetAndPrevious(t *testing.T) {
	ctx := context.Background()
	h := &recHooks{}
	cc := newTestCache(t, newMemStore("users"), h)

	alice := user{ID: "1", Name: "alice"}
	prev, had, err := cc.Put(ctx, "u:1", alice)
	if err != nil || had || prev != (user{}) {
		t.Fatalf("first put: prev=%+v had=%v err=%v", prev, had, err)
	}

	got, ok, err := cc.Get(ctx, "u:1")
	if err != nil || !ok || got != alice {
		t.Fatalf("get: got=%+v ok=%v err=%v", got, ok, err)
	}

	bob := user{ID: "1", Name: "bob"}
	prev, had, err = cc.Put(ctx, "u:1", bob)
	if err != nil || !had || prev != alice {
		t.Fatalf("second put should return alice: prev=%+v had=%v err=%v", prev, had, err)
	}
	if got, _, _ := cc.Get(ctx, "u:1"); got != bob {
		t.Fatalf("expected bob after overwrite, got %+v", got)
	}
	if h.hits < 2 {
		t.Fatalf("hits=%d want >=2", h.hits)
	}
}

func TestPutEmptyKey(t *testing.T) {
	ctx := context.Background()
	h := &recHooks{}
	cc := newTestCache(t, newMemStore("users"), h)

	_, _, err := cc.Put(ctx, "", user{ID: "x"})
	var ce *Error
	if !errors.As(err, &ce) || !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected *Error wrapping ErrEmptyKey, got %v", err)
	}
	if ce.Op != "put" || ce.Cache != "users" {
		t.Fatalf("unexpected error fields: %+v", ce)
	}
	if n, _ := cc.Size(ctx); n != 0 {
		t.Fatalf("nothing should be stored, size=%d", n)
	}
}

func TestPutRejectedByStore(t *testing.T) {
	ctx := context.Background()
	s := newMemStore("users")
	s.reject = true
	h := &recHooks{}
	cc := newTestCache(t, s, h)

	if _, _, err := cc.Put(ctx, "k", user{ID: "1"}); err != nil {
		t.Fatalf("rejection is not an error: %v", err)
	}
	if h.rejected != 1 {
		t.Fatalf("rejected=%d want 1", h.rejected)
	}
	if _, ok, _ := cc.Get(ctx, "k"); ok {
		t.Fatalf("rejected value must not be visible")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemStore("users"), nil)

	prev, had, err := cc.Remove(ctx, "absent")
	if err != nil || had || prev != (user{}) {
		t.Fatalf("remove absent: prev=%+v had=%v err=%v", prev, had, err)
	}
	if _, had, err := cc.Remove(ctx, ""); err != nil || had {
		t.Fatalf("remove empty key must be a no-op: had=%v err=%v", had, err)
	}

	u := user{ID: "7", Name: "g"}
	_, _, _ = cc.Put(ctx, "k", u)
	prev, had, err = cc.Remove(ctx, "k")
	if err != nil || !had || prev != u {
		t.Fatalf("remove: prev=%+v had=%v err=%v", prev, had, err)
	}
	if _, ok, _ := cc.Get(ctx, "k"); ok {
		t.Fatalf("key still present after remove")
	}
}

func TestClearSizeKeysValues(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemStore("users"), nil)

	want := map[string]user{"a": {ID: "a"}, "b": {ID: "b"}, "c": {ID: "c"}}
	for k, v := range want {
		if _, _, err := cc.Put(ctx, k, v); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	if n, err := cc.Size(ctx); err != nil || n != 3 {
		t.Fatalf("size=%d err=%v", n, err)
	}

	ks, err := cc.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	got := ks.Slice()
	sort.Strings(got)
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("keys=%v", got)
	}

	// snapshot is independent from later writes and from callers' slices
	got[0] = "mutated"
	_, _, _ = cc.Put(ctx, "d", user{ID: "d"})
	if ks.Len() != 3 || ks.Contains("d") || ks.Contains("mutated") || !ks.Contains("a") {
		t.Fatalf("keyset changed after the fact: %v", ks.Slice())
	}

	vals, err := cc.Values(ctx)
	if err != nil || len(vals) != 4 {
		t.Fatalf("values=%v err=%v", vals, err)
	}

	if err := cc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := cc.Size(ctx); n != 0 {
		t.Fatalf("size after clear=%d", n)
	}
	if _, _, err := cc.Put(ctx, "again", user{ID: "z"}); err != nil {
		t.Fatalf("cache unusable after clear: %v", err)
	}
}

// racyStore reports a key in Keys that is already gone on Get.
type racyStore struct{ *memStore }

func (s racyStore) Keys(ctx context.Context) ([]string, error) {
	keys, _ := s.memStore.Keys(ctx)
	return append(keys, "vanished", keys[0]), nil
}

func TestValuesSkipsVanishedKeys(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, racyStore{newMemStore("users")}, nil)
	_, _, _ = cc.Put(ctx, "only", user{ID: "1"})

	vals, err := cc.Values(ctx)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if len(vals) != 1 || vals[0].ID != "1" {
		t.Fatalf("values=%v, want exactly the live entry once", vals)
	}
}

func TestCorruptBytesAreAnError(t *testing.T) {
	ctx := context.Background()
	s := newMemStore("users")
	h := &recHooks{}
	cc := newTestCache(t, s, h)

	s.m["foreign"] = []byte("written by someone else")
	s.m["badjson"] = wire.EncodeValue([]byte("{not json"))

	for _, k := range []string{"foreign", "badjson"} {
		_, ok, err := cc.Get(ctx, k)
		var ce *Error
		if ok || !errors.As(err, &ce) || ce.Op != "get" || ce.Key != k {
			t.Fatalf("%s: expected *Error from get, got ok=%v err=%v", k, ok, err)
		}
	}
	if !errors.Is(func() error { _, _, err := cc.Get(ctx, "foreign"); return err }(), wire.ErrCorrupt) {
		t.Fatalf("expected wire.ErrCorrupt cause")
	}
	// Put reads the previous value first
	if _, _, err := cc.Put(ctx, "foreign", user{}); err == nil {
		t.Fatalf("expected put over corrupt entry to fail")
	}
}

func TestFailingStoreWrapsEveryOperation(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("grid unreachable")
	h := &recHooks{}
	cc := newTestCache(t, failingStore{name: "users", err: boom}, h)

	check := func(op string, err error) {
		t.Helper()
		var ce *Error
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected *Error, got %T %v", op, err, err)
		}
		if !errors.Is(err, ErrCache) || !errors.Is(err, boom) {
			t.Fatalf("%s: error should match ErrCache and its cause: %v", op, err)
		}
		if ce.Op != op {
			t.Fatalf("op=%q want %q", ce.Op, op)
		}
	}

	_, _, err := cc.Get(ctx, "k")
	check("get", err)
	_, _, err = cc.Put(ctx, "k", user{})
	check("put", err) // the failing read of the previous value
	_, _, err = cc.Remove(ctx, "k")
	check("remove", err)
	check("clear", cc.Clear(ctx))
	_, err = cc.Size(ctx)
	check("size", err)
	_, err = cc.Keys(ctx)
	check("keys", err)
	_, err = cc.Values(ctx)
	check("values", err)

	if len(h.failed) != 7 {
		t.Fatalf("OperationFailed fired %d times, want 7: %v", len(h.failed), h.failed)
	}
}

func TestString(t *testing.T) {
	cc := newTestCache(t, newMemStore("authorizationCache"), nil)
	if got := cc.String(); got != "Cache [authorizationCache]" {
		t.Fatalf("String()=%q", got)
	}
	if cc.Name() != "authorizationCache" {
		t.Fatalf("Name()=%q", cc.Name())
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "get", Cache: "c", Key: "k", Err: errors.New("x")}
	if got := err.Error(); got != `gridcache: get "k" in cache [c]: x` {
		t.Fatalf("got %q", got)
	}
	if wrapErr("put", "c", "k", err) != error(err) {
		t.Fatalf("wrapErr must not double wrap")
	}
}

func TestWritesAreNotCountedAsLookups(t *testing.T) {
	ctx := context.Background()
	h := &recHooks{}
	cc := newTestCache(t, newMemStore("users"), h)

	_, _, _ = cc.Put(ctx, "k", user{ID: "1"})
	_, _, _ = cc.Put(ctx, "k", user{ID: "2"})
	_, _, _ = cc.Remove(ctx, "k")
	_, _, _ = cc.Remove(ctx, "k")
	if h.hits != 0 || h.misses != 0 {
		t.Fatalf("writes reported lookups: hits=%d misses=%d", h.hits, h.misses)
	}

	_, _, _ = cc.Get(ctx, "k")
	_, _, _ = cc.Put(ctx, "k", user{ID: "3"})
	_, _, _ = cc.Get(ctx, "k")
	if h.hits != 1 || h.misses != 1 {
		t.Fatalf("hits=%d misses=%d want 1/1", h.hits, h.misses)
	}
}
