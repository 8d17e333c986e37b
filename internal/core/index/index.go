package index

import (
	"sort"

	"github.com/zeusync/eventscope/internal/core/models"
)

// Entry is the reverse-index record of one event: who listens to it and which
// fields hold it. Lookup returns copies, so callers may keep them.
type Entry struct {
	Event      *models.Event
	Listeners  []models.ListenerEntry
	References []models.FieldReference
}

func (e Entry) Empty() bool { return len(e.Listeners) == 0 && len(e.References) == 0 }

// Placement records an event placed as a unit on a node.
type Placement struct {
	Event     *models.Event
	Node      *models.Node
	Container *models.Container
}

type entry struct {
	event      *models.Event
	listeners  []models.ListenerEntry
	references []models.FieldReference
}

func (e *entry) empty() bool { return len(e.listeners) == 0 && len(e.references) == 0 }

// unboundID owns references whose field is currently unset.
const unboundID models.ID = ""

// Index maps event identity to listeners and field references. A field reference
// lives in exactly one place: its event's entry, or the unbound bucket when the
// field holds nothing.
//
// Index is not safe for concurrent use.
type Index struct {
	entries    map[models.ID]*entry
	unbound    []models.FieldReference
	listenerAt map[uint64]models.ID
	refAt      map[uint64]models.ID
	placements []Placement
}

func New() *Index {
	return &Index{
		entries:    make(map[models.ID]*entry),
		listenerAt: make(map[uint64]models.ID),
		refAt:      make(map[uint64]models.ID),
	}
}

// RecordListener adds the (event, listener) pair. Nil events are ignored, and a pair
// already present is kept once.
func (x *Index) RecordListener(event *models.Event, l models.ListenerEntry) {
	if event == nil || l.Listener == nil {
		return
	}
	l.Event = event
	key := l.Key()
	if _, ok := x.listenerAt[key]; ok {
		return
	}
	e := x.entry(event)
	e.listeners = append(e.listeners, l)
	x.listenerAt[key] = event.ID()
}

// RecordFieldReference adds or moves a field reference. A nil event files the
// reference as unbound; it still belongs to its container.
func (x *Index) RecordFieldReference(event *models.Event, ref models.FieldReference) {
	if ref.Unit == nil {
		return
	}
	ref.Event = event
	key := ref.Key()
	if _, ok := x.refAt[key]; ok {
		x.dropReference(key)
	}
	if event == nil {
		x.unbound = append(x.unbound, ref)
		x.refAt[key] = unboundID
		return
	}
	e := x.entry(event)
	e.references = append(e.references, ref)
	x.refAt[key] = event.ID()
}

// RecordPlacement notes that event sits on node inside container.
func (x *Index) RecordPlacement(event *models.Event, node *models.Node, c *models.Container) {
	if event == nil || c == nil {
		return
	}
	for _, p := range x.placements {
		if p.Event.ID() == event.ID() && p.Container.ID() == c.ID() && p.Node == node {
			return
		}
	}
	x.placements = append(x.placements, Placement{Event: event, Node: node, Container: c})
}

// DropFieldReference removes one reference by key. It reports whether it existed.
func (x *Index) DropFieldReference(key uint64) bool {
	if _, ok := x.refAt[key]; !ok {
		return false
	}
	x.dropReference(key)
	return true
}

// PruneContainer removes every listener, field reference and placement rooted in c
// and drops entries that become empty.
func (x *Index) PruneContainer(c *models.Container) {
	x.PruneListeners(c)
	x.PruneFieldReferences(c)
	x.PrunePlacements(c)
}

func (x *Index) PruneListeners(c *models.Container) {
	if c == nil {
		return
	}
	for id, e := range x.entries {
		kept := e.listeners[:0]
		for _, l := range e.listeners {
			if inContainer(l.Container, c) {
				delete(x.listenerAt, l.Key())
				continue
			}
			kept = append(kept, l)
		}
		e.listeners = kept
		if e.empty() {
			delete(x.entries, id)
		}
	}
}

func (x *Index) PruneFieldReferences(c *models.Container) {
	if c == nil {
		return
	}
	for id, e := range x.entries {
		kept := e.references[:0]
		for _, r := range e.references {
			if inContainer(r.Container, c) {
				delete(x.refAt, r.Key())
				continue
			}
			kept = append(kept, r)
		}
		e.references = kept
		if e.empty() {
			delete(x.entries, id)
		}
	}
	kept := x.unbound[:0]
	for _, r := range x.unbound {
		if inContainer(r.Container, c) {
			delete(x.refAt, r.Key())
			continue
		}
		kept = append(kept, r)
	}
	x.unbound = kept
}

func (x *Index) PrunePlacements(c *models.Container) {
	if c == nil {
		return
	}
	kept := x.placements[:0]
	for _, p := range x.placements {
		if !inContainer(p.Container, c) {
			kept = append(kept, p)
		}
	}
	x.placements = kept
}

// ClearPlacements forgets every placement; event rescans rebuild them.
func (x *Index) ClearPlacements() { x.placements = nil }

// Lookup returns the entry for event. An event without entry, or a nil event,
// yields an empty Entry.
func (x *Index) Lookup(event *models.Event) Entry {
	if event == nil {
		return Entry{}
	}
	e, ok := x.entries[event.ID()]
	if !ok {
		return Entry{Event: event}
	}
	return Entry{
		Event:      e.event,
		Listeners:  append([]models.ListenerEntry(nil), e.listeners...),
		References: append([]models.FieldReference(nil), e.references...),
	}
}

// FieldReference returns the stored reference with the given key.
func (x *Index) FieldReference(key uint64) (models.FieldReference, bool) {
	id, ok := x.refAt[key]
	if !ok {
		return models.FieldReference{}, false
	}
	for _, r := range x.bucket(id) {
		if r.Key() == key {
			return r, true
		}
	}
	return models.FieldReference{}, false
}

// Listeners returns every listener entry ordered by event name, then recording order.
func (x *Index) Listeners() []models.ListenerEntry {
	var out []models.ListenerEntry
	for _, e := range x.sorted() {
		out = append(out, e.listeners...)
	}
	return out
}

// FieldReferences returns every field reference, bound ones first ordered by event
// name, then the unbound ones.
func (x *Index) FieldReferences() []models.FieldReference {
	var out []models.FieldReference
	for _, e := range x.sorted() {
		out = append(out, e.references...)
	}
	return append(out, x.unbound...)
}

func (x *Index) Unbound() []models.FieldReference {
	return append([]models.FieldReference(nil), x.unbound...)
}

func (x *Index) Placements() []Placement {
	return append([]Placement(nil), x.placements...)
}

// Events returns the events that currently have an entry, sorted by name.
func (x *Index) Events() []*models.Event {
	sorted := x.sorted()
	out := make([]*models.Event, len(sorted))
	for i, e := range sorted {
		out[i] = e.event
	}
	return out
}

// Len is the number of event entries.
func (x *Index) Len() int { return len(x.entries) }

// Replace swaps in the contents of other in one step. other must not be used
// afterwards.
func (x *Index) Replace(other *Index) {
	if other == nil {
		other = New()
	}
	*x = *other
}

func (x *Index) entry(event *models.Event) *entry {
	e, ok := x.entries[event.ID()]
	if !ok {
		e = &entry{event: event}
		x.entries[event.ID()] = e
	}
	return e
}

func (x *Index) bucket(id models.ID) []models.FieldReference {
	if id == unboundID {
		return x.unbound
	}
	if e, ok := x.entries[id]; ok {
		return e.references
	}
	return nil
}

func (x *Index) dropReference(key uint64) {
	id := x.refAt[key]
	delete(x.refAt, key)
	remove := func(refs []models.FieldReference) []models.FieldReference {
		for i, r := range refs {
			if r.Key() == key {
				return append(refs[:i], refs[i+1:]...)
			}
		}
		return refs
	}
	if id == unboundID {
		x.unbound = remove(x.unbound)
		return
	}
	if e, ok := x.entries[id]; ok {
		e.references = remove(e.references)
		if e.empty() {
			delete(x.entries, id)
		}
	}
}

func (x *Index) sorted() []*entry {
	out := make([]*entry, 0, len(x.entries))
	for _, e := range x.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].event.Name() != out[j].event.Name() {
			return out[i].event.Name() < out[j].event.Name()
		}
		return out[i].event.ID() < out[j].event.ID()
	})
	return out
}

func inContainer(owner, c *models.Container) bool {
	return owner != nil && owner.ID() == c.ID()
}
