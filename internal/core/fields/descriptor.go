package fields

import (
	"errors"
	"reflect"
	"sync"

	"github.com/zeusync/eventscope/internal/core/models"
)

var (
	ErrFieldNotFound  = errors.New("fields: field not found on unit")
	ErrNotAssignable  = errors.New("fields: value not assignable to field")
	ErrNotAddressable = errors.New("fields: unit is not addressable")
)

// Descriptor describes one event typed field of a behavior unit type. Get reports
// false when the field does not exist on the given unit, which callers treat as a
// stale reference. Set stores an event (nil clears the field).
type Descriptor struct {
	Name string
	// Declared is the declared field type, nil for dynamic fields.
	Declared reflect.Type

	Get func(unit any) (*models.Event, bool)
	Set func(unit any, event *models.Event) error
}

// Describer is implemented by units that publish their own event fields instead of
// being inspected through reflection.
type Describer interface {
	DescribeFields() []Descriptor
}

// Registry maps unit types to their event field descriptors. Lookup order is the
// unit's own Describer, then descriptors registered for its type, then reflection
// over exported struct fields when enabled. Names are deduplicated, first wins.
type Registry struct {
	mu         sync.RWMutex
	types      map[reflect.Type][]Descriptor
	reflected  map[reflect.Type][]Descriptor
	reflection bool
}

type Option func(*Registry)

// WithReflection toggles the reflection fallback. It is on by default.
func WithReflection(enabled bool) Option {
	return func(r *Registry) { r.reflection = enabled }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		types:      make(map[reflect.Type][]Descriptor),
		reflected:  make(map[reflect.Type][]Descriptor),
		reflection: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register declares descriptors for the dynamic type of sample.
func (r *Registry) Register(sample any, descs ...Descriptor) {
	t := reflect.TypeOf(sample)
	r.mu.Lock()
	r.types[t] = append(r.types[t], descs...)
	r.mu.Unlock()
}

// Describe returns the event field descriptors of unit.
func (r *Registry) Describe(unit any) []Descriptor {
	if unit == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []Descriptor
	add := func(descs []Descriptor) {
		for _, d := range descs {
			if _, dup := seen[d.Name]; dup {
				continue
			}
			seen[d.Name] = struct{}{}
			out = append(out, d)
		}
	}

	if d, ok := unit.(Describer); ok {
		add(d.DescribeFields())
	}

	t := reflect.TypeOf(unit)
	r.mu.RLock()
	registered := r.types[t]
	reflected, cached := r.reflected[t]
	useReflection := r.reflection
	r.mu.RUnlock()

	add(registered)
	if !useReflection {
		return out
	}
	if !cached {
		reflected = Reflect(t)
		r.mu.Lock()
		r.reflected[t] = reflected
		r.mu.Unlock()
	}
	add(reflected)
	return out
}

// Lookup finds the descriptor for one field of unit.
func (r *Registry) Lookup(unit any, field string) (Descriptor, bool) {
	for _, d := range r.Describe(unit) {
		if d.Name == field {
			return d, true
		}
	}
	return Descriptor{}, false
}
