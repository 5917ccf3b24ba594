package wallet

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/mirador/solconnect/session"
)

// Registry is the owned equivalent of the ambient wallet-standard window
// registry: providers register and unregister at runtime, and subscribers
// are notified whenever the discoverable set changes. A Registry is safe
// for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider   // keyed by display name
	known     map[string]Descriptor // placeholder catalog, keyed by name
	nextID    int
	watchers  []registryWatcher
	logger    *slog.Logger
}

type registryWatcher struct {
	id int
	fn func()
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		providers: make(map[string]Provider),
		known:     make(map[string]Descriptor),
		logger:    logger.With("component", "wallet-registry"),
	}
}

// Register adds a live provider and returns its unregister function.
// Registering a provider with a name already present replaces the previous
// one.
func (r *Registry) Register(p Provider) (unregister func()) {
	name := p.Name()

	r.mu.Lock()
	_, replaced := r.providers[name]
	r.providers[name] = p
	r.mu.Unlock()

	r.logger.Info("provider registered", "wallet", name, "replaced", replaced)
	r.notify()

	return func() { r.Unregister(name) }
}

// Unregister removes a provider by name. Unknown names are a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	_, ok := r.providers[name]
	delete(r.providers, name)
	r.mu.Unlock()

	if ok {
		r.logger.Info("provider unregistered", "wallet", name)
		r.notify()
	}
}

// RegisterKnown adds a placeholder descriptor for a wallet that is not
// currently installed. Discover reports it with Installed=false unless a
// live provider with the same name is registered.
func (r *Registry) RegisterKnown(d Descriptor) {
	d.Installed = false
	if d.ConnectorID == "" {
		d.ConnectorID = session.NewConnectorID(d.Name)
	}

	r.mu.Lock()
	r.known[d.Name] = d
	r.mu.Unlock()

	r.notify()
}

// Lookup returns the live provider with the given display name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// LookupByConnectorID returns the live provider whose normalized identity
// matches id.
func (r *Registry) LookupByConnectorID(id session.ConnectorID) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, p := range r.providers {
		if session.NewConnectorID(name) == id {
			return p, true
		}
	}
	return nil, false
}

// Discover returns the current wallet set: one descriptor per live
// provider (Installed=true) plus one per known placeholder without a live
// provider (Installed=false), sorted by name. The result is a fresh
// snapshot on every call.
func (r *Registry) Discover() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.providers)+len(r.known))
	for name, p := range r.providers {
		out = append(out, Descriptor{
			Name:        name,
			Icon:        p.Icon(),
			Chains:      p.Chains(),
			Features:    p.Features().List(),
			Installed:   true,
			ConnectorID: session.NewConnectorID(name),
		})
	}
	for name, d := range r.known {
		if _, live := r.providers[name]; !live {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// OnChange subscribes to discoverable-set changes and returns an
// unsubscribe function.
func (r *Registry) OnChange(fn func()) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.watchers = append(r.watchers, registryWatcher{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, w := range r.watchers {
			if w.id == id {
				r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
				return
			}
		}
	}
}

// notify calls watchers outside the lock so they may re-enter the registry.
func (r *Registry) notify() {
	r.mu.RLock()
	snapshot := make([]registryWatcher, len(r.watchers))
	copy(snapshot, r.watchers)
	r.mu.RUnlock()

	for _, w := range snapshot {
		w.fn()
	}
}
