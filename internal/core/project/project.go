package project

import (
	"sort"

	"github.com/zeusync/eventscope/internal/core/models"
)

// Project is a loaded object graph: the event catalog plus every container. Which
// containers start out registered with the index is part of the project file.
type Project struct {
	events     []*models.Event
	byID       map[models.ID]*models.Event
	containers []*models.Container
	registered map[models.ID]bool
}

func New() *Project {
	return &Project{
		byID:       make(map[models.ID]*models.Event),
		registered: make(map[models.ID]bool),
	}
}

// AddEvent adds an event asset. It reports false when the ID is taken.
func (p *Project) AddEvent(e *models.Event) bool {
	if e == nil {
		return false
	}
	if _, ok := p.byID[e.ID()]; ok {
		return false
	}
	p.byID[e.ID()] = e
	p.events = append(p.events, e)
	return true
}

func (p *Project) AddContainer(c *models.Container, registered bool) {
	p.containers = append(p.containers, c)
	p.registered[c.ID()] = registered
}

// Assets returns the event catalog in declaration order.
func (p *Project) Assets() []*models.Event { return p.events }

// Containers returns every container, registered or not.
func (p *Project) Containers() []*models.Container { return p.containers }

// Registered returns the containers flagged for registration.
func (p *Project) Registered() []*models.Container {
	var out []*models.Container
	for _, c := range p.containers {
		if p.registered[c.ID()] {
			out = append(out, c)
		}
	}
	return out
}

func (p *Project) Event(id models.ID) (*models.Event, bool) {
	e, ok := p.byID[id]
	return e, ok
}

// EventByName returns the first catalog event with the given name.
func (p *Project) EventByName(name string) (*models.Event, bool) {
	for _, e := range p.events {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// ContainerByName returns the first container with the given name.
func (p *Project) ContainerByName(name string) (*models.Container, bool) {
	for _, c := range p.containers {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// ContainerNames lists every container name, sorted.
func (p *Project) ContainerNames() []string {
	out := make([]string, len(p.containers))
	for i, c := range p.containers {
		out[i] = c.Name()
	}
	sort.Strings(out)
	return out
}
