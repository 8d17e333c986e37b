package scanner

import (
	"errors"
	"fmt"

	"github.com/zeusync/eventscope/internal/core/fields"
	"github.com/zeusync/eventscope/internal/core/index"
	"github.com/zeusync/eventscope/internal/core/models"
	"github.com/zeusync/eventscope/internal/core/observability/log"
)

// ErrStaleReference is returned when a reference names a field its unit no longer has.
var ErrStaleReference = errors.New("scanner: field no longer exists on unit")

// Project is the whole accessible project: loose event assets plus every container,
// registered or not.
type Project interface {
	Assets() []*models.Event
	Containers() []*models.Container
}

// EventScan is the result of ScanEvents.
type EventScan struct {
	// ByName is the event catalog. On a name collision the last event found wins.
	ByName     map[string]*models.Event
	Placements []index.Placement
}

// Scanner walks container trees and discovers events, listeners and event typed
// fields. It holds no index state of its own.
//
// Every scan runs synchronously on the calling goroutine, one container after
// another, so unit callbacks are never invoked concurrently.
type Scanner struct {
	fields *fields.Registry
	logger log.Log
}

type Option func(*Scanner)

func WithLogger(l log.Log) Option {
	return func(s *Scanner) { s.logger = l }
}

func WithFields(r *fields.Registry) Option {
	return func(s *Scanner) { s.fields = r }
}

func New(opts ...Option) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	if s.fields == nil {
		s.fields = fields.NewRegistry()
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}
	return s
}

func (s *Scanner) Fields() *fields.Registry { return s.fields }

// ScanEvents collects every event of the project, not only those in registered
// containers. Collections are taken as they are; members are not followed.
func (s *Scanner) ScanEvents(p Project) EventScan {
	out := EventScan{ByName: make(map[string]*models.Event)}
	if p == nil {
		return out
	}
	add := func(e *models.Event) {
		if e == nil {
			return
		}
		if prev, ok := out.ByName[e.Name()]; ok && prev.ID() != e.ID() {
			s.logger.Debug("event name collision",
				log.String("name", e.Name()),
				log.String("kept", string(e.ID())),
				log.String("dropped", string(prev.ID())),
			)
		}
		out.ByName[e.Name()] = e
	}

	for _, e := range p.Assets() {
		add(e)
	}
	for _, c := range p.Containers() {
		c.Walk(func(n *models.Node) bool {
			for _, u := range n.Units() {
				sig, ok := u.(models.Signal)
				if !ok {
					continue
				}
				e := sig.Base()
				if e == nil {
					continue
				}
				add(e)
				out.Placements = append(out.Placements, index.Placement{Event: e, Node: n, Container: c})
			}
			return true
		})
	}
	return out
}

// ScanListeners collects the listeners with a non-nil target in the given containers.
func (s *Scanner) ScanListeners(containers []*models.Container) []models.ListenerEntry {
	var out []models.ListenerEntry
	for _, c := range containers {
		out = append(out, listenersIn(c)...)
	}
	s.logger.Debug("listeners scanned", log.Int("containers", len(containers)), log.Int("found", len(out)))
	return out
}

func listenersIn(c *models.Container) []models.ListenerEntry {
	var out []models.ListenerEntry
	c.Walk(func(n *models.Node) bool {
		for _, u := range n.Units() {
			l, ok := u.(models.Listener)
			if !ok {
				continue
			}
			target := l.ListensTo()
			if target == nil {
				continue
			}
			out = append(out, models.ListenerEntry{Listener: l, Event: target, Node: n, Container: c})
		}
		return true
	})
	return out
}

// ScanFieldReferences collects every event typed field of every plain unit in the
// given containers, including fields that currently hold nothing. Listener and event
// units are not inspected: their event is their subject, not a field reference.
func (s *Scanner) ScanFieldReferences(containers []*models.Container) []models.FieldReference {
	var found []models.FieldReference
	for _, c := range containers {
		found = append(found, s.referencesIn(c)...)
	}

	// a unit shared between containers is reported once, at its first sighting
	seen := make(map[uint64]struct{}, len(found))
	out := found[:0]
	for _, ref := range found {
		key := ref.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ref)
	}
	s.logger.Debug("field references scanned", log.Int("containers", len(containers)), log.Int("found", len(out)))
	return out
}

func (s *Scanner) referencesIn(c *models.Container) []models.FieldReference {
	var out []models.FieldReference
	c.Walk(func(n *models.Node) bool {
		for _, u := range n.Units() {
			if !inspectable(u) {
				continue
			}
			for _, d := range s.fields.Describe(u) {
				event, ok := d.Get(u)
				if !ok {
					continue
				}
				ref := models.FieldReference{
					Unit:      u,
					Field:     d.Name,
					Event:     event,
					Node:      n,
					Container: c,
				}
				ref.Derive()
				out = append(out, ref)
			}
		}
		return true
	})
	return out
}

// FindReferences re-scans the containers and returns the references currently
// holding event.
func (s *Scanner) FindReferences(containers []*models.Container, event *models.Event) []models.FieldReference {
	if event == nil {
		return nil
	}
	var out []models.FieldReference
	for _, ref := range s.ScanFieldReferences(containers) {
		if models.SameEvent(ref.Event, event) {
			out = append(out, ref)
		}
	}
	return out
}

// RefreshFieldReference re-reads the live value of one field and re-derives its
// display names. It reports false when the field no longer exists on the unit.
func (s *Scanner) RefreshFieldReference(ref models.FieldReference) (models.FieldReference, bool) {
	if ref.Unit == nil {
		return ref, false
	}
	d, ok := s.fields.Lookup(ref.Unit, ref.Field)
	if !ok {
		return ref, false
	}
	event, ok := d.Get(ref.Unit)
	if !ok {
		return ref, false
	}
	ref.Event = event
	ref.Derive()
	return ref, true
}

// Assign stores event (nil clears) in the referenced field and returns the
// refreshed reference.
func (s *Scanner) Assign(ref models.FieldReference, event *models.Event) (models.FieldReference, error) {
	if ref.Unit == nil {
		return ref, ErrStaleReference
	}
	d, ok := s.fields.Lookup(ref.Unit, ref.Field)
	if !ok || d.Set == nil {
		return ref, fmt.Errorf("%w: %s.%s", ErrStaleReference, ref.Unit.Name(), ref.Field)
	}
	if err := d.Set(ref.Unit, event); err != nil {
		return ref, fmt.Errorf("assign %s.%s: %w", ref.Unit.Name(), ref.Field, err)
	}
	refreshed, ok := s.RefreshFieldReference(ref)
	if !ok {
		return ref, fmt.Errorf("%w: %s.%s", ErrStaleReference, ref.Unit.Name(), ref.Field)
	}
	return refreshed, nil
}

func inspectable(u models.Unit) bool {
	if u == nil {
		return false
	}
	if _, ok := u.(models.Listener); ok {
		return false
	}
	if _, ok := u.(models.Signal); ok {
		return false
	}
	return true
}
