// Package asynchook moves gridcache.Hooks calls off the caller's goroutine.
// Events are queued and dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{LookupEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	dir := gridcache.NewDirectory(gridcache.Options{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/gridcache"
)

type Hooks struct {
	inner   gridcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against send on closed q
	closed  bool
	dropped atomic.Uint64
}

var _ gridcache.Hooks = (*Hooks)(nil)

func New(inner gridcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent afterwards
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) ManagerCreated(l string)     { h.try(func() { h.inner.ManagerCreated(l) }) }
func (h *Hooks) ManagerStopFailed(err error) { h.try(func() { h.inner.ManagerStopFailed(err) }) }
func (h *Hooks) Lookup(c string, hit bool)   { h.try(func() { h.inner.Lookup(c, hit) }) }
func (h *Hooks) SetRejected(c string)        { h.try(func() { h.inner.SetRejected(c) }) }
func (h *Hooks) CacheResolved(c string, created bool) {
	h.try(func() { h.inner.CacheResolved(c, created) })
}
func (h *Hooks) OperationFailed(c, op string, err error) {
	h.try(func() { h.inner.OperationFailed(c, op, err) })
}
