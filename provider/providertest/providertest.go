// Package providertest checks a provider.Store against the behaviour
// gridcache relies on. Backend packages call Run from their own tests.
package providertest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	pr "github.com/unkn0wn-root/gridcache/provider"
)

// Run exercises a fresh, empty store returned by open. Each subtest gets its
// own store; open is responsible for cleanup.
func Run(t *testing.T, open func(t *testing.T, name string) pr.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMiss", func(t *testing.T) {
		s := open(t, "miss")
		b, ok, err := s.Get(ctx, "nope")
		require.NoError(t, err)
		require.False(t, ok)
		require.Nil(t, b)
	})

	t.Run("PutGetTransparent", func(t *testing.T) {
		s := open(t, "transparent")
		val := []byte{0x00, 0xff, 'G', 'R', 'D', 'C', 0x01}
		ok, err := s.Put(ctx, "k", val)
		require.NoError(t, err)
		require.True(t, ok)

		got, hit, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, hit)
		require.True(t, bytes.Equal(val, got), "got %x want %x", got, val)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := open(t, "overwrite")
		_, err := s.Put(ctx, "k", []byte("one"))
		require.NoError(t, err)
		_, err = s.Put(ctx, "k", []byte("two"))
		require.NoError(t, err)

		got, _, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "two", string(got))
		n, err := s.Size(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("RemoveIdempotent", func(t *testing.T) {
		s := open(t, "remove")
		_, err := s.Put(ctx, "k", []byte("v"))
		require.NoError(t, err)
		require.NoError(t, s.Remove(ctx, "k"))
		require.NoError(t, s.Remove(ctx, "k"))
		require.NoError(t, s.Remove(ctx, "never-there"))

		_, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("KeysSizeClear", func(t *testing.T) {
		s := open(t, "keys")
		want := []string{"alice", "bob", "user@example.com", "a b/c"}
		for i, k := range want {
			_, err := s.Put(ctx, k, []byte(fmt.Sprint(i)))
			require.NoError(t, err)
		}

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		sort.Strings(keys)
		sorted := append([]string(nil), want...)
		sort.Strings(sorted)
		require.Equal(t, sorted, keys)

		n, err := s.Size(ctx)
		require.NoError(t, err)
		require.Equal(t, len(want), n)

		require.NoError(t, s.Clear(ctx))
		n, err = s.Size(ctx)
		require.NoError(t, err)
		require.Zero(t, n)
		keys, err = s.Keys(ctx)
		require.NoError(t, err)
		require.Empty(t, keys)

		// still usable after Clear
		_, err = s.Put(ctx, "again", []byte("x"))
		require.NoError(t, err)
		_, ok, err := s.Get(ctx, "again")
		require.NoError(t, err)
		require.True(t, ok)
	})
}

// RunIsolation checks that two stores with different names opened by open
// never see each other's entries.
func RunIsolation(t *testing.T, open func(t *testing.T, name string) pr.Store) {
	t.Helper()
	ctx := context.Background()

	a := open(t, "iso.a")
	b := open(t, "iso.b")
	_, err := a.Put(ctx, "shared", []byte("from-a"))
	require.NoError(t, err)

	_, ok, err := b.Get(ctx, "shared")
	require.NoError(t, err)
	require.False(t, ok, "entry leaked into another cache")

	require.NoError(t, b.Clear(ctx))
	got, ok, err := a.Get(ctx, "shared")
	require.NoError(t, err)
	require.True(t, ok, "clearing one cache must not touch another")
	require.Equal(t, "from-a", string(got))
}
