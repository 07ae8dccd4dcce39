package gridcache

import (
	"context"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	c "github.com/unkn0wn-root/gridcache/codec"
	"github.com/unkn0wn-root/gridcache/manager"
	pr "github.com/unkn0wn-root/gridcache/provider"
	"github.com/unkn0wn-root/gridcache/resource"
)

// DefaultConfigLocator is the bundled config used when the Directory has to
// build its own manager. It disables expiration.
const DefaultConfigLocator = resource.ClasspathPrefix + "gridcache/failsafe.yaml"

// ManagerFactory builds a manager from a config stream.
type ManagerFactory func(ctx context.Context, r io.Reader) (pr.Manager, error)

// Options configure a Directory. The zero value is usable: caches are then
// served by a manager built from DefaultConfigLocator on first use.
type Options struct {
	// Container or Manager, when set, are used as is and never stopped.
	// Manager wins when both are set.
	Container pr.Container
	Manager   pr.Manager

	ConfigLocator string          // if empty, DefaultConfigLocator
	Loader        resource.Loader // if nil, resource.NewLoader()
	NewManager    ManagerFactory  // if nil, manager.New
	ManagerLogger *zap.Logger     // passed to manager.New; nil = no logs

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

// binding is an immutable snapshot of what the Directory resolves through.
type binding struct {
	container pr.Container
	manager   pr.Manager
	owned     bool // manager was built by this Directory
	// viaManager is set while container is the manager itself
	viaManager bool
}

// Directory hands out caches by name. It borrows a container or manager
// supplied by the caller, or builds and owns one from a config resource.
// Safe for concurrent use.
type Directory struct {
	bound atomic.Pointer[binding]

	mu         sync.Mutex // serializes binding changes
	locator    string
	loader     resource.Loader
	newManager ManagerFactory

	log   Logger
	hooks Hooks
}

func NewDirectory(opts Options) *Directory {
	d := &Directory{
		locator:    coalesce(opts.ConfigLocator, DefaultConfigLocator),
		loader:     opts.Loader,
		newManager: opts.NewManager,
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:      coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	if d.loader == nil {
		d.loader = resource.NewLoader()
	}
	if d.newManager == nil {
		zl := opts.ManagerLogger
		d.newManager = func(ctx context.Context, r io.Reader) (pr.Manager, error) {
			return manager.New(ctx, r, manager.Options{Logger: zl})
		}
	}

	b := &binding{container: opts.Container}
	if opts.Manager != nil {
		b.manager = opts.Manager
		b.container = opts.Manager
		b.viaManager = true
	}
	d.bound.Store(b)
	return d
}

// GetCache resolves name through d and wraps it in a typed handle. A nil
// codec means codec.JSON[V].
func GetCache[V any](ctx context.Context, d *Directory, name string, codec c.Codec[V]) (Cache[V], error) {
	s, err := d.Store(ctx, name)
	if err != nil {
		return nil, err
	}
	return newCache[V](CacheOptions[V]{Store: s, Codec: codec, Logger: d.log, Hooks: d.hooks})
}

// Store resolves name to the underlying byte store, building the owned
// manager first if nothing is bound yet.
func (d *Directory) Store(ctx context.Context, name string) (pr.Store, error) {
	d.log.Debug("acquiring cache", Fields{"cache": name})

	b, err := d.ensure(ctx)
	if err != nil {
		return nil, err
	}

	var (
		s       pr.Store
		created bool
	)
	managed := b.owned && b.viaManager
	if managed {
		s, created, err = resolveOwned(ctx, b.manager, name)
	} else {
		s, err = b.container.GetCache(ctx, name)
	}
	if err != nil {
		werr := wrapErr("getCache", name, "", err)
		d.hooks.OperationFailed(name, "getCache", err)
		return nil, werr
	}

	switch {
	case created:
		d.log.Info("cache did not exist yet, created", Fields{"cache": name})
	case managed:
		d.log.Info("using existing cache", Fields{"cache": name})
	default:
		d.log.Info("using cache", Fields{"cache": name})
	}
	d.hooks.CacheResolved(name, created)
	return s, nil
}

func resolveOwned(ctx context.Context, m pr.Manager, name string) (pr.Store, bool, error) {
	names, err := m.CacheNames(ctx)
	if err != nil {
		return nil, false, err
	}
	if !slices.Contains(names, name) {
		s, err := m.CreateCache(ctx, name)
		return s, true, err
	}
	if err := m.StartCaches(ctx, name); err != nil {
		return nil, false, err
	}
	s, err := m.GetCache(ctx, name)
	return s, false, err
}

// Init makes sure a container is bound, building the owned manager if
// needed. Calling it again is a no-op.
func (d *Directory) Init(ctx context.Context) error {
	_, err := d.ensure(ctx)
	return err
}

// ensure returns a binding with a container. The fast path is a lock-free
// load; creation happens at most once under mu.
func (d *Directory) ensure(ctx context.Context) (*binding, error) {
	if b := d.bound.Load(); b.container != nil {
		return b, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.bound.Load()
	if b.container != nil {
		return b, nil
	}

	next := *b
	if next.manager == nil {
		m, err := d.buildManager(ctx)
		if err != nil {
			return nil, err
		}
		next.manager = m
		next.owned = true
	}
	next.container = next.manager
	next.viaManager = true
	d.bound.Store(&next)
	return &next, nil
}

// buildManager is called with mu held.
func (d *Directory) buildManager(ctx context.Context) (pr.Manager, error) {
	d.log.Debug("no manager set, building one", Fields{"locator": d.locator})

	r, err := d.loader.Open(d.locator)
	if err != nil {
		return nil, wrapErr("init", "", "", err)
	}
	defer r.Close()

	m, err := d.newManager(ctx, r)
	if err != nil {
		return nil, wrapErr("init", "", "", err)
	}
	d.log.Debug("manager created", Fields{"locator": d.locator})
	d.hooks.ManagerCreated(d.locator)
	return m, nil
}

// Destroy stops the manager only if this Directory built it. A failing stop
// is logged and reported through Hooks, never returned. References are
// kept, so later lookups fail with the manager's stopped error.
func (d *Directory) Destroy(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := d.bound.Load()
	if !b.owned {
		return
	}
	if err := b.manager.Stop(ctx); err != nil {
		d.log.Warn("unable to cleanly stop the owned cache manager, ignoring", Fields{"err": err})
		d.hooks.ManagerStopFailed(err)
	}
	next := *b
	next.owned = false
	d.bound.Store(&next)
}

// OwnsManager reports whether Destroy would stop the current manager.
func (d *Directory) OwnsManager() bool { return d.bound.Load().owned }

func (d *Directory) Container() pr.Container { return d.bound.Load().container }

// SetContainer binds c for subsequent lookups. It is used as is and never
// stopped by this Directory; an owned manager stays owned until Destroy.
func (d *Directory) SetContainer(c pr.Container) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := *d.bound.Load()
	next.container = c
	next.viaManager = false
	d.bound.Store(&next)
}

func (d *Directory) Manager() pr.Manager { return d.bound.Load().manager }

// SetManager binds m as an externally owned manager: Destroy will not stop
// it. If the container was the previous manager, m replaces it there too.
// Destroy an owned manager before replacing it.
func (d *Directory) SetManager(m pr.Manager) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := *d.bound.Load()
	next := binding{container: prev.container, manager: m}
	if prev.container == nil || prev.viaManager {
		next.container = nil
		if m != nil {
			next.container = m
			next.viaManager = true
		}
	}
	d.bound.Store(&next)
}

func (d *Directory) ConfigLocator() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locator
}

// SetConfigLocator changes where the owned manager's config is read from.
// It only matters before the manager is built.
func (d *Directory) SetConfigLocator(locator string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locator = coalesce(locator, DefaultConfigLocator)
}
