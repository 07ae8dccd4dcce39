package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/gridcache"
	"github.com/unkn0wn-root/gridcache/codec"
)

func TestCountsThroughDirectory(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	h, err := New(reg)
	require.NoError(t, err)

	d := gridcache.NewDirectory(gridcache.Options{Hooks: h})
	defer d.Destroy(ctx)

	c, err := gridcache.GetCache[string](ctx, d, "test", codec.String{})
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "hello")
	require.NoError(t, err)
	require.False(t, ok)
	_, _, err = c.Put(ctx, "hello", "world") // writes are not lookups
	require.NoError(t, err)
	_, ok, err = c.Get(ctx, "hello")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.lookups.WithLabelValues("test", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.lookups.WithLabelValues("test", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.resolved.WithLabelValues("test", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.managersCreated))
}

func TestFailuresAndRejections(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(reg)
	require.NoError(t, err)

	h.OperationFailed("authz", "get", errors.New("x"))
	h.OperationFailed("authz", "get", errors.New("x"))
	h.SetRejected("authz")
	h.ManagerStopFailed(errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(h.failures.WithLabelValues("authz", "get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.rejected.WithLabelValues("authz")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.stopFailures))

	n, err := testutil.GatherAndCount(reg, "gridcache_cache_operation_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
