package project

import (
	"sort"

	"github.com/zeusync/eventscope/internal/core/fields"
	"github.com/zeusync/eventscope/internal/core/models"
)

// ListenerUnit reacts to one event with a number of bound responses.
type ListenerUnit struct {
	id        models.ID
	name      string
	Event     *models.Event
	Responses int
}

var _ models.Listener = (*ListenerUnit)(nil)

func NewListener(id models.ID, name string, event *models.Event, responses int) *ListenerUnit {
	return &ListenerUnit{id: id, name: name, Event: event, Responses: responses}
}

func (l *ListenerUnit) ID() models.ID            { return l.id }
func (l *ListenerUnit) Name() string             { return l.name }
func (l *ListenerUnit) ListensTo() *models.Event { return l.Event }
func (l *ListenerUnit) ResponseCount() int       { return l.Responses }

// Trigger is a plain struct unit; its event fields are found through reflection.
type Trigger struct {
	id      models.ID
	name    string
	OnEnter *models.Event
	OnExit  *models.Event
}

func NewTrigger(id models.ID, name string) *Trigger {
	return &Trigger{id: id, name: name}
}

func (t *Trigger) ID() models.ID { return t.id }
func (t *Trigger) Name() string  { return t.name }

// Script carries a dynamic set of named event slots and describes them itself.
type Script struct {
	id    models.ID
	name  string
	slots map[string]*models.Event
}

var _ fields.Describer = (*Script)(nil)

func NewScript(id models.ID, name string) *Script {
	return &Script{id: id, name: name, slots: make(map[string]*models.Event)}
}

func (s *Script) ID() models.ID { return s.id }
func (s *Script) Name() string  { return s.name }

// Declare adds a slot, optionally bound.
func (s *Script) Declare(slot string, event *models.Event) {
	s.slots[slot] = event
}

// Undeclare removes a slot. References to it go stale.
func (s *Script) Undeclare(slot string) {
	delete(s.slots, slot)
}

func (s *Script) Slot(slot string) (*models.Event, bool) {
	e, ok := s.slots[slot]
	return e, ok
}

// DescribeFields lists the slots in name order.
func (s *Script) DescribeFields() []fields.Descriptor {
	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]fields.Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, fields.Descriptor{
			Name: name,
			Get: func(unit any) (*models.Event, bool) {
				script, ok := unit.(*Script)
				if !ok {
					return nil, false
				}
				return script.Slot(name)
			},
			Set: func(unit any, event *models.Event) error {
				script, ok := unit.(*Script)
				if !ok {
					return fields.ErrFieldNotFound
				}
				if _, ok := script.slots[name]; !ok {
					return fields.ErrFieldNotFound
				}
				script.slots[name] = event
				return nil
			},
		})
	}
	return out
}
