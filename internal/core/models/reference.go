package models

import "github.com/cespare/xxhash/v2"

// ListenerEntry records one (event, listener) pair found in a container.
type ListenerEntry struct {
	Listener  Listener
	Event     *Event
	Node      *Node
	Container *Container
}

func (l ListenerEntry) ContainerName() string { return containerName(l.Container) }

// DisplayName is the listener unit name.
func (l ListenerEntry) DisplayName() string { return l.Listener.Name() }

// Key identifies the pair independently of slice position.
func (l ListenerEntry) Key() uint64 {
	return xxhash.Sum64String(string(l.Listener.ID()) + "\x00" + eventID(l.Event))
}

// FieldReference is an event typed field on a behavior unit. Event is nil when the
// field is unset; the reference is tracked regardless of its current value.
type FieldReference struct {
	Unit      Unit
	Field     string
	Event     *Event
	Node      *Node
	Container *Container

	// Label and EventName are display names derived at scan or refresh time.
	Label     string
	EventName string
}

func (r FieldReference) ContainerName() string { return containerName(r.Container) }

func (r FieldReference) DisplayName() string { return r.Unit.Name() }

// Key identifies the reference by (unit handle, field name).
func (r FieldReference) Key() uint64 {
	return ReferenceKey(r.Unit.ID(), r.Field)
}

// Derive recomputes the display names from the current field value.
func (r *FieldReference) Derive() {
	prefix := r.Unit.Name()
	if r.Node != nil {
		prefix = r.Node.Path() + "/" + prefix
	}
	r.Label = prefix + "." + r.Field
	if r.Event != nil {
		r.EventName = r.Event.Name()
	} else {
		r.EventName = ""
	}
}

func ReferenceKey(unit ID, field string) uint64 {
	return xxhash.Sum64String(string(unit) + "\x00" + field)
}

// SceneStatistics are per-container counts derived from the index at query time.
type SceneStatistics struct {
	Container  string `json:"container"`
	Events     int    `json:"events"`
	Listeners  int    `json:"listeners"`
	References int    `json:"references"`
}

func containerName(c *Container) string {
	if c == nil {
		return ""
	}
	return c.name
}

func eventID(e *Event) string {
	if e == nil {
		return ""
	}
	return string(e.id)
}
