package registry

import (
	"sort"

	"github.com/zeusync/eventscope/internal/core/models"
)

// Invalidator is told about membership changes so the next staleness check sees them.
type Invalidator interface {
	Invalidate()
}

// Pruner drops index state rooted in a removed container.
type Pruner interface {
	PruneContainer(c *models.Container)
}

// Registry owns the set of containers known to the core. Identity is the container
// handle ID; names are a secondary, possibly colliding, index.
//
// Registry is not safe for concurrent use. It belongs to the goroutine driving the
// manager.
type Registry struct {
	containers  []*models.Container
	byID        map[models.ID]*models.Container
	version     uint64
	invalidator Invalidator
	pruner      Pruner
}

type Option func(*Registry)

func WithInvalidator(inv Invalidator) Option {
	return func(r *Registry) { r.invalidator = inv }
}

func WithPruner(p Pruner) Option {
	return func(r *Registry) { r.pruner = p }
}

func New(opts ...Option) *Registry {
	r := &Registry{byID: make(map[models.ID]*models.Container)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers c unless a container with the same handle is present. It reports
// whether the registry changed.
func (r *Registry) Add(c *models.Container) bool {
	if c == nil {
		return false
	}
	if _, ok := r.byID[c.ID()]; ok {
		return false
	}
	r.byID[c.ID()] = c
	r.containers = append(r.containers, c)
	r.changed()
	return true
}

// Remove unregisters c and prunes its index entries. Absent containers are a no-op.
func (r *Registry) Remove(c *models.Container) bool {
	if c == nil {
		return false
	}
	registered, ok := r.byID[c.ID()]
	if !ok {
		return false
	}
	delete(r.byID, c.ID())
	for i, cur := range r.containers {
		if cur.ID() == c.ID() {
			r.containers = append(r.containers[:i], r.containers[i+1:]...)
			break
		}
	}
	if r.pruner != nil {
		r.pruner.PruneContainer(registered)
	}
	r.changed()
	return true
}

func (r *Registry) Contains(c *models.Container) bool {
	if c == nil {
		return false
	}
	_, ok := r.byID[c.ID()]
	return ok
}

// List returns the containers sorted by name. Equal names keep registration order.
func (r *Registry) List() []*models.Container {
	out := make([]*models.Container, len(r.containers))
	copy(out, r.containers)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the sorted container names; bit i of a container mask selects
// Names()[i].
func (r *Registry) Names() []string {
	list := r.List()
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Name()
	}
	return out
}

// Lookup returns the first container with the given name in List order.
func (r *Registry) Lookup(name string) (*models.Container, bool) {
	for _, c := range r.List() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int { return len(r.containers) }

// Version increases on every membership change.
func (r *Registry) Version() uint64 { return r.version }

func (r *Registry) changed() {
	r.version++
	if r.invalidator != nil {
		r.invalidator.Invalidate()
	}
}
