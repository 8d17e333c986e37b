package project

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/eventscope/internal/core/models"
)

var (
	ErrUnknownUnitType = errors.New("project: unknown unit type")
	ErrUnknownEvent    = errors.New("project: unknown event")
	ErrInvalidParam    = errors.New("project: invalid unit parameter")
)

// Resolver turns event IDs found in unit params into catalog events.
type Resolver interface {
	Event(id models.ID) (*models.Event, bool)
}

// UnitFactory builds one unit from its declaration.
type UnitFactory func(res Resolver, id models.ID, name string, params map[string]any) (models.Unit, error)

// Registry maps unit type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]UnitFactory
}

// NewRegistry returns a registry holding the built-in unit types.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]UnitFactory)}
	r.Register("listener", newListenerUnit)
	r.Register("event", newEventUnit)
	r.Register("trigger", newTriggerUnit)
	r.Register("script", newScriptUnit)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(typ string, factory UnitFactory) {
	r.mu.Lock()
	r.factories[typ] = factory
	r.mu.Unlock()
}

func (r *Registry) NewUnit(typ string, res Resolver, id models.ID, name string, params map[string]any) (models.Unit, error) {
	r.mu.RLock()
	f := r.factories[typ]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnitType, typ)
	}
	return f(res, id, name, params)
}

// Types lists the registered unit type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

func newListenerUnit(res Resolver, id models.ID, name string, params map[string]any) (models.Unit, error) {
	event, err := eventParam(res, params, "event")
	if err != nil {
		return nil, err
	}
	responses, err := intParam(params, "responses")
	if err != nil {
		return nil, err
	}
	return NewListener(id, name, event, responses), nil
}

// newEventUnit places a catalog event on a node. The unit is the event itself.
func newEventUnit(res Resolver, _ models.ID, _ string, params map[string]any) (models.Unit, error) {
	event, err := eventParam(res, params, "event")
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event unit needs an event", ErrInvalidParam)
	}
	return event, nil
}

func newTriggerUnit(res Resolver, id models.ID, name string, params map[string]any) (models.Unit, error) {
	t := NewTrigger(id, name)
	var err error
	if t.OnEnter, err = eventParam(res, params, "on_enter"); err != nil {
		return nil, err
	}
	if t.OnExit, err = eventParam(res, params, "on_exit"); err != nil {
		return nil, err
	}
	return t, nil
}

func newScriptUnit(res Resolver, id models.ID, name string, params map[string]any) (models.Unit, error) {
	s := NewScript(id, name)
	raw, ok := params["fields"]
	if !ok || raw == nil {
		return s, nil
	}
	slots, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: fields must be a map, got %T", ErrInvalidParam, raw)
	}
	for slot := range slots {
		event, err := eventParam(res, slots, slot)
		if err != nil {
			return nil, err
		}
		s.Declare(slot, event)
	}
	return s, nil
}

// eventParam resolves params[key] as an event ID. Missing and empty values yield nil.
func eventParam(res Resolver, params map[string]any, key string) (*models.Event, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	id, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an event id, got %T", ErrInvalidParam, key, raw)
	}
	if id == "" {
		return nil, nil
	}
	event, ok := res.Event(models.ID(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}
	return event, nil
}

// intParam accepts the integer shapes produced by the JSON, YAML and TOML decoders.
func intParam(params map[string]any, key string) (int, error) {
	switch v := params[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %s must be whole, got %v", ErrInvalidParam, key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParam, key, v)
	}
}
