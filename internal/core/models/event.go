package models

// Kind discriminates plain events from collections of events.
type Kind uint8

const (
	KindSimple Kind = iota
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Signal is implemented by *Event and by every type embedding *Event. A field whose
// declared type implements Signal holds an event reference.
type Signal interface {
	Base() *Event
}

// Listener is the capability of a unit that reacts to exactly one event.
type Listener interface {
	Unit
	// ListensTo returns the subscribed event, or nil when the listener is unbound.
	ListensTo() *Event
	// ResponseCount returns the number of reactions bound to the listener.
	ResponseCount() int
}

// Event is the named signal object the index revolves around. Events live in the
// project catalog and may additionally be placed on a node as a unit.
type Event struct {
	id          ID
	name        string
	Description string
	kind        Kind
	members     []*Event
}

var (
	_ Unit   = (*Event)(nil)
	_ Signal = (*Event)(nil)
)

func NewEvent(id ID, name string, kind Kind) *Event {
	return &Event{id: id, name: name, kind: kind}
}

func (e *Event) ID() ID       { return e.id }
func (e *Event) Name() string { return e.name }
func (e *Event) Kind() Kind   { return e.kind }
func (e *Event) Base() *Event { return e }

func (e *Event) IsCollection() bool { return e.kind == KindCollection }

// Members returns the declared, one-level member list of a collection. Entries may be
// nil and may include the collection itself.
func (e *Event) Members() []*Event {
	out := make([]*Event, len(e.members))
	copy(out, e.members)
	return out
}

// MemberCount reports the declared member count without dereferencing members.
func (e *Event) MemberCount() int { return len(e.members) }

// AddMember appends an event to a collection. It is a no-op on simple events.
func (e *Event) AddMember(member *Event) bool {
	if e.kind != KindCollection {
		return false
	}
	e.members = append(e.members, member)
	return true
}

// RemoveMember removes the first occurrence of member from a collection.
func (e *Event) RemoveMember(member *Event) bool {
	for i, m := range e.members {
		if m == member || (m != nil && member != nil && m.id == member.id) {
			e.members = append(e.members[:i], e.members[i+1:]...)
			return true
		}
	}
	return false
}

// Flatten returns every event transitively reachable through collection membership,
// each once, in breadth-first order. Cycles, including self membership, terminate.
func (e *Event) Flatten() []*Event {
	visited := map[ID]struct{}{e.id: {}}
	var out []*Event
	queue := append([]*Event(nil), e.members...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil {
			continue
		}
		if _, seen := visited[cur.id]; seen {
			continue
		}
		visited[cur.id] = struct{}{}
		out = append(out, cur)
		if cur.kind == KindCollection {
			queue = append(queue, cur.members...)
		}
	}
	return out
}

// SameEvent reports whether two handles refer to the same event. Two nil handles are
// not considered the same.
func SameEvent(a, b *Event) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || a.id == b.id
}
