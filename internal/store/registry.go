package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	stores   *Stores
	once     sync.Once
	active   int
	lastUsed time.Time
}

// Registry owns one Stores bundle per active profile. Bundles are created
// and initialised on first use and disposed after sitting idle for the
// configured TTL. A bundle is never evicted while acquired.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	entries  map[string]*entry
	onCreate []func(*Stores)
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	return &Registry{
		deps:    deps,
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// OnCreate registers fn to run for every new bundle after Init. Register
// hooks before the first Acquire.
func (r *Registry) OnCreate(fn func(*Stores)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCreate = append(r.onCreate, fn)
}

// Acquire returns the bundle for profileID, creating and initialising it if
// needed. The caller must call release when done with it.
func (r *Registry) Acquire(ctx context.Context, profileID string) (*Stores, func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrRegistryClosed
	}
	e, ok := r.entries[profileID]
	if !ok {
		e = &entry{stores: New(r.deps, profileID)}
		r.entries[profileID] = e
	}
	e.active++
	e.lastUsed = r.now()
	hooks := r.onCreate
	r.mu.Unlock()

	e.once.Do(func() {
		// A cancelled first request must not leave the bundle empty.
		e.stores.Init(context.WithoutCancel(ctx))
		for _, fn := range hooks {
			fn(e.stores)
		}
		r.deps.Logger.DebugContext(ctx, "profile stores created", slog.String("profile_id", profileID))
	})

	var released sync.Once
	release := func() {
		released.Do(func() {
			r.mu.Lock()
			e.active--
			e.lastUsed = r.now()
			r.mu.Unlock()
		})
	}
	return e.stores, release, nil
}

// Sweep disposes bundles idle for longer than the TTL and returns how many
// were evicted.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	var evicted []*Stores
	now := r.now()
	for id, e := range r.entries {
		if e.active == 0 && now.Sub(e.lastUsed) > r.idleTTL {
			evicted = append(evicted, e.stores)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, s := range evicted {
		s.Dispose()
	}
	if len(evicted) > 0 {
		r.deps.Logger.Debug("evicted idle profile stores", slog.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of live bundles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close disposes every bundle. Later Acquire calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.stores.Dispose()
	}
}
