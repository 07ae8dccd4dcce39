package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/gridcache"
)

type counting struct {
	gridcache.NopHooks
	mu      sync.Mutex
	lookups int
	failed  int
	block   chan struct{}
}

func (c *counting) Lookup(string, bool) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
}

func (c *counting) OperationFailed(string, string, error) {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}

func TestDeliversThenDrainsOnClose(t *testing.T) {
	inner := &counting{}
	h := New(inner, 2, 64)
	for i := 0; i < 10; i++ {
		h.Lookup("c", true)
	}
	h.OperationFailed("c", "get", errors.New("x"))
	h.Close()

	if inner.lookups != 10 || inner.failed != 1 {
		t.Fatalf("lookups=%d failed=%d", inner.lookups, inner.failed)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped=%d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	inner := &counting{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// worker takes the first event and blocks; one more fills the queue
	h.Lookup("c", true)
	for i := 0; i < 10; i++ {
		h.Lookup("c", true)
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	close(inner.block)
	h.Close()
	h.Close()

	h.Lookup("c", true)
	if inner.lookups+int(h.Dropped()) != 12 {
		t.Fatalf("delivered %d + dropped %d != 12", inner.lookups, h.Dropped())
	}
}
