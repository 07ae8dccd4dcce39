// Package manager is the default provider.Manager: a registry of named
// caches built from a config stream, each backed by one of the provider
// packages.
//
// Remote clients (redis, valkey, NATS) are created on first use, shared by
// every cache of that backend and released by Stop.
package manager

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/jmgilman/go/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/gridcache/config"
	pr "github.com/unkn0wn-root/gridcache/provider"
)

// ErrStopped is returned by every call made after Stop.
var ErrStopped = errors.New(errors.CodeUnavailable, "cache manager stopped")

type Options struct {
	Logger *zap.Logger
	// Environment replaces the process environment for config overrides.
	Environment map[string]string
	SkipEnv     bool
}

type Manager struct {
	cfg config.Config
	log *zap.Logger

	mu      sync.Mutex
	known   map[string]struct{}
	running map[string]pr.Store
	stopped bool

	// life outlives any caller: engines keep background work on it
	life    context.Context
	cancel  context.CancelFunc
	opening singleflight.Group
	clients *clients
}

var _ pr.Manager = (*Manager)(nil)

// New reads a config stream and returns a manager for it. No cache is
// started until it is asked for.
func New(_ context.Context, r io.Reader, opts Options) (*Manager, error) {
	cfg, err := config.Load(r, config.LoadOptions{Environment: opts.Environment, SkipEnv: opts.SkipEnv})
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, opts), nil
}

// NewWithConfig returns a manager for an already loaded config.
func NewWithConfig(cfg config.Config, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("gridcache.manager")

	life, cancel := context.WithCancel(context.Background())
	m := &Manager{
		life:    life,
		cancel:  cancel,
		cfg:     cfg,
		log:     log,
		known:   make(map[string]struct{}),
		running: make(map[string]pr.Store),
		clients: newClients(cfg, log),
	}
	for _, n := range cfg.Declared() {
		m.known[n] = struct{}{}
	}
	log.Debug("manager created", zap.Strings("declared", cfg.Declared()))
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() config.Config { return m.cfg }

func (m *Manager) CacheNames(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil, ErrStopped
	}
	names := make([]string, 0, len(m.known))
	for n := range m.known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// GetCache returns the named cache, starting it if needed. Names the config
// does not declare are created from the default template.
func (m *Manager) GetCache(ctx context.Context, name string) (pr.Store, error) {
	return m.open(ctx, name)
}

func (m *Manager) CreateCache(ctx context.Context, name string) (pr.Store, error) {
	return m.open(ctx, name)
}

// StartCaches starts known caches. Naming a cache the manager does not know
// is an error; use CreateCache for those.
func (m *Manager) StartCaches(ctx context.Context, names ...string) error {
	for _, name := range names {
		m.mu.Lock()
		_, ok := m.known[name]
		stopped := m.stopped
		m.mu.Unlock()
		if stopped {
			return ErrStopped
		}
		if !ok {
			return errors.WithContext(errors.New(errors.CodeNotFound, "cache not defined"), "cache", name)
		}
		if _, err := m.open(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Stop closes every running cache concurrently, then the shared clients.
// Stopping twice is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	stores := make([]pr.Store, 0, len(m.running))
	for _, s := range m.running {
		stores = append(stores, s)
	}
	m.running = map[string]pr.Store{}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range stores {
		g.Go(func() error {
			if err := s.Close(gctx); err != nil {
				m.log.Warn("closing cache failed", zap.String("cache", s.Name()), zap.Error(err))
				return errors.Wrapf(err, errors.CodeInternal, "close cache %q", s.Name())
			}
			return nil
		})
	}
	err := g.Wait()
	if cerr := m.clients.close(); err == nil {
		err = cerr
	}
	m.cancel()
	m.log.Info("manager stopped", zap.Int("caches", len(stores)), zap.Error(err))
	return err
}

func (m *Manager) open(ctx context.Context, name string) (pr.Store, error) {
	if s, err := m.lookup(name); s != nil || err != nil {
		return s, err
	}

	// Builds run on m.life; ctx only bounds how long this caller waits.
	ch := m.opening.DoChan(name, func() (any, error) {
		if s, err := m.lookup(name); s != nil || err != nil {
			return s, err
		}
		cc := m.cfg.CacheFor(name)
		s, err := m.build(m.life, name, cc)
		if err != nil {
			m.log.Error("starting cache failed", zap.String("cache", name), zap.String("backend", string(cc.Backend)), zap.Error(err))
			return nil, err
		}

		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			_ = s.Close(context.Background())
			return nil, ErrStopped
		}
		_, declared := m.known[name]
		m.known[name] = struct{}{}
		m.running[name] = s
		m.mu.Unlock()

		m.log.Debug("cache started",
			zap.String("cache", name),
			zap.String("backend", string(cc.Backend)),
			zap.Duration("expiration", cc.TTL()),
			zap.Bool("declared", declared))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(pr.Store), nil
	}
}

func (m *Manager) lookup(name string) (pr.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil, ErrStopped
	}
	return m.running[name], nil
}
