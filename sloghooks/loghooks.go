// Package sloghooks logs gridcache.Hooks events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/gridcache"
)

type Options struct {
	// Lookups are hot: 0 = never log them, 1 = log all, n = every n-th.
	LookupEvery uint64
	// Sampling to avoid floods; 0/1 = log all.
	RejectEvery uint64
	FailedEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	lookupCtr atomic.Uint64
	rejectCtr atomic.Uint64
	failedCtr atomic.Uint64
}

var _ gridcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ManagerCreated(locator string) {
	if h.l == nil {
		return
	}
	h.l.Info("gridcache.manager_created", "locator", locator)
}

func (h *Hooks) ManagerStopFailed(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("gridcache.manager_stop_failed", "err", err)
}

func (h *Hooks) CacheResolved(cache string, created bool) {
	if h.l == nil {
		return
	}
	h.l.Debug("gridcache.cache_resolved",
		"cache", cache,
		"created", created)
}

func (h *Hooks) Lookup(cache string, hit bool) {
	if h.l == nil || h.opts.LookupEvery == 0 || !sample(h.opts.LookupEvery, &h.lookupCtr) {
		return
	}
	h.l.Debug("gridcache.lookup",
		"cache", cache,
		"hit", hit)
}

func (h *Hooks) SetRejected(cache string) {
	if h.l == nil || !sample(h.opts.RejectEvery, &h.rejectCtr) {
		return
	}
	h.l.Warn("gridcache.set_rejected", "cache", cache)
}

func (h *Hooks) OperationFailed(cache, op string, err error) {
	if h.l == nil || !sample(h.opts.FailedEvery, &h.failedCtr) {
		return
	}
	h.l.Error("gridcache.operation_failed",
		"cache", cache,
		"op", op,
		"err", err)
}
