package manager

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zeusync/eventscope/internal/config"
	"github.com/zeusync/eventscope/internal/core/fields"
	"github.com/zeusync/eventscope/internal/core/filter"
	"github.com/zeusync/eventscope/internal/core/index"
	"github.com/zeusync/eventscope/internal/core/models"
	"github.com/zeusync/eventscope/internal/core/notify"
	"github.com/zeusync/eventscope/internal/core/observability/log"
	"github.com/zeusync/eventscope/internal/core/observability/metrics"
	"github.com/zeusync/eventscope/internal/core/registry"
	"github.com/zeusync/eventscope/internal/core/scanner"
	"github.com/zeusync/eventscope/internal/core/scheduler"
	"github.com/zeusync/eventscope/internal/core/stats"
)

const noticeSource = "manager"

// Project is what the manager needs from a loaded project.
type Project interface {
	scanner.Project
	// Registered lists the containers to register on load.
	Registered() []*models.Container
}

// emptyProject stands in for a missing project.
type emptyProject struct{}

func (emptyProject) Assets() []*models.Event         { return nil }
func (emptyProject) Containers() []*models.Container { return nil }
func (emptyProject) Registered() []*models.Container { return nil }

// Manager is the core API consumed by presentation layers. It owns the container
// registry and the reference index and is their only writer.
//
// Manager is not safe for concurrent use: every call must come from the goroutine
// driving the poll cycle. Notices are the way to hand state to other goroutines.
type Manager struct {
	project   Project
	registry  *registry.Registry
	index     *index.Index
	scanner   *scanner.Scanner
	scheduler *scheduler.Scheduler
	stats     *stats.Aggregator
	events    map[string]*models.Event

	bus     notify.Bus
	logger  log.Log
	metrics metrics.Recorder
	tracer  trace.Tracer
	fields  *fields.Registry
}

type Option func(*Manager)

func WithLogger(l log.Log) Option {
	return func(m *Manager) { m.logger = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

func WithBus(b notify.Bus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithFields supplies the field descriptor registry, for units whose fields are
// declared rather than reflected.
func WithFields(r *fields.Registry) Option {
	return func(m *Manager) { m.fields = r }
}

// New builds a manager over project and registers the containers the project
// flags as registered. No scan runs until the first rescan or poll.
func New(p Project, cfg config.Config, opts ...Option) *Manager {
	if p == nil {
		p = emptyProject{}
	}
	m := &Manager{
		project: p,
		index:   index.New(),
		events:  make(map[string]*models.Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Nop()
	}
	if m.metrics == nil {
		m.metrics = metrics.Nop{}
	}
	if m.bus == nil {
		m.bus = notify.New()
	}
	if m.tracer == nil {
		m.tracer = noop.NewTracerProvider().Tracer("")
	}
	if m.fields == nil {
		m.fields = fields.NewRegistry(fields.WithReflection(!cfg.DisableFieldReflection))
	}

	m.scheduler = scheduler.New(scheduler.WithCooldown(cfg.Cooldown))
	m.registry = registry.New(registry.WithInvalidator(m.scheduler), registry.WithPruner(m.index))
	m.stats = stats.New(m.index, m.registry)
	m.scanner = scanner.New(scanner.WithFields(m.fields), scanner.WithLogger(m.logger))

	for _, c := range p.Registered() {
		m.registry.Add(c)
	}
	return m
}

// AddContainer registers c. Adding a registered container is a no-op.
func (m *Manager) AddContainer(c *models.Container) bool {
	if !m.registry.Add(c) {
		return false
	}
	m.logger.Debug("container added", log.String("container", c.Name()))
	m.publish(notify.ContainerAdded, c.Name())
	return true
}

// RemoveContainer unregisters c and purges every index entry rooted in it.
func (m *Manager) RemoveContainer(c *models.Container) bool {
	if !m.registry.Remove(c) {
		return false
	}
	m.logger.Debug("container removed", log.String("container", c.Name()))
	m.publish(notify.ContainerRemoved, c.Name())
	return true
}

// Containers returns the registered containers in name order.
func (m *Manager) Containers() []*models.Container { return m.registry.List() }

// RescanEvents rebuilds the event catalog from the whole project and the event
// placements of registered containers.
func (m *Manager) RescanEvents() {
	span := m.span("manager.RescanEvents")
	defer span.End()
	start := time.Now()
	scan := m.scanner.ScanEvents(m.project)
	span.SetAttributes(attribute.Int("found", len(scan.ByName)))
	m.events = scan.ByName
	m.index.ClearPlacements()
	for _, p := range scan.Placements {
		if m.registry.Contains(p.Container) {
			m.index.RecordPlacement(p.Event, p.Node, p.Container)
		}
	}
	m.observe(metrics.ScanEvents, start, len(scan.ByName))
	m.publish(notify.EventsScanned, len(scan.ByName))
}

// RescanListeners re-collects listeners in the containers selected by mask. The
// empty mask selects every registered container.
func (m *Manager) RescanListeners(mask filter.Mask) error {
	selected, err := m.selectContainers(mask)
	if err != nil {
		return err
	}
	span := m.span("manager.RescanListeners", attribute.Int("containers", len(selected)))
	defer span.End()
	start := time.Now()
	for _, c := range selected {
		m.index.PruneListeners(c)
	}
	found := m.scanner.ScanListeners(selected)
	span.SetAttributes(attribute.Int("found", len(found)))
	for _, l := range found {
		m.index.RecordListener(l.Event, l)
	}
	m.observe(metrics.ScanListeners, start, len(found))
	m.publish(notify.ListenersScanned, len(found))
	return nil
}

// RescanFieldReferences re-collects field references in the containers selected
// by mask. The empty mask selects every registered container.
func (m *Manager) RescanFieldReferences(mask filter.Mask) error {
	selected, err := m.selectContainers(mask)
	if err != nil {
		return err
	}
	span := m.span("manager.RescanFieldReferences", attribute.Int("containers", len(selected)))
	defer span.End()
	start := time.Now()
	for _, c := range selected {
		m.index.PruneFieldReferences(c)
	}
	found := m.scanner.ScanFieldReferences(selected)
	span.SetAttributes(attribute.Int("found", len(found)))
	for _, r := range found {
		m.index.RecordFieldReference(r.Event, r)
	}
	m.observe(metrics.ScanReferences, start, len(found))
	m.publish(notify.ReferencesScanned, len(found))
	return nil
}

// Rescan rebuilds the whole index from the registered containers and swaps it in
// at once.
func (m *Manager) Rescan() {
	start := time.Now()
	containers := m.registry.List()
	span := m.span("manager.Rescan", attribute.Int("containers", len(containers)))
	defer span.End()
	fresh := index.New()

	scan := m.scanner.ScanEvents(m.project)
	for _, p := range scan.Placements {
		if m.registry.Contains(p.Container) {
			fresh.RecordPlacement(p.Event, p.Node, p.Container)
		}
	}
	for _, l := range m.scanner.ScanListeners(containers) {
		fresh.RecordListener(l.Event, l)
	}
	for _, r := range m.scanner.ScanFieldReferences(containers) {
		fresh.RecordFieldReference(r.Event, r)
	}

	m.events = scan.ByName
	m.index.Replace(fresh)
	m.scheduler.Reset(m.registry.Len())
	span.SetAttributes(attribute.Int("entries", m.index.Len()))

	m.observe(metrics.ScanFull, start, m.index.Len())
	m.logger.Debug("index rebuilt",
		log.Int("containers", len(containers)),
		log.Int("events", m.index.Len()),
		log.Duration("elapsed", time.Since(start)),
	)
	m.publish(notify.IndexRebuilt, stats.Totals(m.stats.All()))
}

// FindReferences re-scans the registered containers for fields currently holding
// event.
func (m *Manager) FindReferences(event *models.Event) []models.FieldReference {
	span := m.span("manager.FindReferences")
	defer span.End()
	if event != nil {
		span.SetAttributes(attribute.String("event", event.Name()))
	}
	return m.scanner.FindReferences(m.registry.List(), event)
}

// RefreshFieldReference re-reads the live value of ref and updates the index. A
// reference whose field disappeared is dropped and false is returned.
func (m *Manager) RefreshFieldReference(ref models.FieldReference) (models.FieldReference, bool) {
	refreshed, ok := m.scanner.RefreshFieldReference(ref)
	if !ok {
		m.drop(ref)
		return ref, false
	}
	if _, indexed := m.index.FieldReference(ref.Key()); indexed {
		m.index.RecordFieldReference(refreshed.Event, refreshed)
	}
	return refreshed, true
}

// AssignFieldReference stores event in the referenced field, then refreshes it.
func (m *Manager) AssignFieldReference(ref models.FieldReference, event *models.Event) (models.FieldReference, error) {
	assigned, err := m.scanner.Assign(ref, event)
	if errors.Is(err, scanner.ErrStaleReference) {
		m.drop(ref)
		return ref, err
	}
	if err != nil {
		return ref, err
	}
	if _, indexed := m.index.FieldReference(ref.Key()); indexed {
		m.index.RecordFieldReference(assigned.Event, assigned)
	}
	m.publish(notify.ReferenceAssigned, assigned.Label)
	return assigned, nil
}

func (m *Manager) GetStatistics(containerName string) models.SceneStatistics {
	return m.stats.Get(containerName)
}

// AllStatistics returns the statistics of every registered container.
func (m *Manager) AllStatistics() []models.SceneStatistics {
	return m.stats.All()
}

// Tick advances the debounce clock.
func (m *Manager) Tick(delta time.Duration) { m.scheduler.Tick(delta) }

// ShouldRescan reports whether a full rescan is due, consuming the decision.
func (m *Manager) ShouldRescan() bool {
	return m.scheduler.ShouldRescan(m.registry.Len())
}

// Poll is one host poll cycle: advance the clock and rescan when due. It reports
// whether a rescan ran.
func (m *Manager) Poll(delta time.Duration) bool {
	m.Tick(delta)
	if !m.ShouldRescan() {
		return false
	}
	m.Rescan()
	return true
}

// Lookup returns the listeners and field references of one event.
func (m *Manager) Lookup(event *models.Event) index.Entry { return m.index.Lookup(event) }

// Events returns the event catalog sorted by name.
func (m *Manager) Events() []*models.Event {
	out := make([]*models.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// EventByName looks an event up in the catalog.
func (m *Manager) EventByName(name string) (*models.Event, bool) {
	e, ok := m.events[name]
	return e, ok
}

// ApplyFilter lists one entity kind filtered by text and container mask.
func (m *Manager) ApplyFilter(kind filter.Kind, text string, mask filter.Mask) ([]filter.Entity, error) {
	selected, err := mask.Resolve(m.registry.Names())
	if err != nil {
		return nil, err
	}
	var entities []filter.Entity
	switch kind {
	case filter.KindContainers:
		for _, c := range m.registry.List() {
			entities = append(entities, filter.FromContainer(c))
		}
	case filter.KindEvents:
		for _, e := range m.Events() {
			entities = append(entities, filter.FromEvent(e))
		}
	case filter.KindListeners:
		for _, l := range m.index.Listeners() {
			entities = append(entities, filter.FromListener(l))
		}
	case filter.KindReferences:
		for _, r := range m.index.FieldReferences() {
			entities = append(entities, filter.FromReference(r))
		}
	}
	return filter.Apply(entities, text, selected), nil
}

// SetProject swaps in a reloaded project. Containers registered before stay
// registered when the new project has a container of the same name; containers
// new to the project follow their registration flag. The index is rebuilt. A nil
// project is treated as an empty one.
func (m *Manager) SetProject(p Project) {
	if p == nil {
		p = emptyProject{}
	}
	before := make(map[string]struct{})
	for _, c := range m.registry.List() {
		before[c.Name()] = struct{}{}
	}
	known := make(map[string]struct{})
	for _, c := range m.project.Containers() {
		known[c.Name()] = struct{}{}
	}
	flagged := make(map[models.ID]struct{})
	for _, c := range p.Registered() {
		flagged[c.ID()] = struct{}{}
	}

	for _, c := range m.registry.List() {
		m.registry.Remove(c)
	}
	m.project = p
	for _, c := range p.Containers() {
		_, wasRegistered := before[c.Name()]
		_, existed := known[c.Name()]
		_, isFlagged := flagged[c.ID()]
		if wasRegistered || (!existed && isFlagged) {
			m.registry.Add(c)
		}
	}

	m.Rescan()
	m.logger.Info("project reloaded", log.Int("containers", m.registry.Len()))
	m.publish(notify.ProjectReloaded, m.registry.Names())
}

// Notices is the bus change notices are published on.
func (m *Manager) Notices() notify.Bus { return m.bus }

// Scheduler exposes the debounce state for inspection.
func (m *Manager) Scheduler() *scheduler.Scheduler { return m.scheduler }

func (m *Manager) selectContainers(mask filter.Mask) ([]*models.Container, error) {
	list := m.registry.List()
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name()
	}
	if _, err := mask.Resolve(names); err != nil {
		return nil, err
	}
	if mask.Empty() {
		return list, nil
	}
	var out []*models.Container
	for i, c := range list {
		if mask.Has(i) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Manager) drop(ref models.FieldReference) {
	m.index.DropFieldReference(ref.Key())
	m.metrics.ReferenceDropped()
	m.logger.Debug("stale field reference dropped", log.String("reference", ref.Label))
	m.publish(notify.ReferenceDropped, ref.Label)
}

func (m *Manager) span(name string, attrs ...attribute.KeyValue) trace.Span {
	_, span := m.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	return span
}

func (m *Manager) observe(kind string, start time.Time, found int) {
	elapsed := time.Since(start)
	m.metrics.ScanCompleted(kind, elapsed, found)
	m.metrics.IndexSize(m.index.Len(), len(m.index.Listeners()), len(m.index.FieldReferences()))
	m.logger.Debug("scan completed",
		log.String("kind", kind),
		log.Int("found", found),
		log.Duration("elapsed", elapsed),
	)
}

func (m *Manager) publish(typ string, data any) {
	if err := m.bus.Publish(notify.NewNotice(typ, noticeSource, data)); err != nil {
		m.logger.Warn("notice handler failed", log.String("notice", typ), log.Error(err))
	}
}
