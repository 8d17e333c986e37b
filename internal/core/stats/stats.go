package stats

import (
	"github.com/zeusync/eventscope/internal/core/index"
	"github.com/zeusync/eventscope/internal/core/models"
	"github.com/zeusync/eventscope/internal/core/registry"
	"github.com/zeusync/eventscope/pkg/sequence"
)

// Aggregator derives per-container counts from the index at query time. It keeps
// no state besides its two sources, so results always reflect the last scan.
type Aggregator struct {
	index    *index.Index
	registry *registry.Registry
}

func New(x *index.Index, r *registry.Registry) *Aggregator {
	return &Aggregator{index: x, registry: r}
}

// Get counts the listeners, field references (bound or not) and placed events
// rooted in the named container. Unregistered names yield zero counts.
func (a *Aggregator) Get(name string) models.SceneStatistics {
	out := models.SceneStatistics{Container: name}
	if _, ok := a.registry.Lookup(name); !ok {
		return out
	}

	out.Listeners = sequence.From(a.index.Listeners()).Filter(func(l models.ListenerEntry) bool {
		return l.ContainerName() == name
	}).Count()
	out.References = sequence.From(a.index.FieldReferences()).Filter(func(r models.FieldReference) bool {
		return r.ContainerName() == name
	}).Count()

	// an event placed twice in one container still counts once
	placed := sequence.From(a.index.Placements()).Filter(func(p index.Placement) bool {
		return p.Container.Name() == name
	})
	out.Events = len(sequence.ToSet(sequence.Map(placed, func(p index.Placement) models.ID {
		return p.Event.ID()
	})))
	return out
}

// All returns statistics for every registered container in name order.
func (a *Aggregator) All() []models.SceneStatistics {
	seen := make(map[string]struct{})
	var out []models.SceneStatistics
	for _, c := range a.registry.List() {
		if _, dup := seen[c.Name()]; dup {
			continue
		}
		seen[c.Name()] = struct{}{}
		out = append(out, a.Get(c.Name()))
	}
	return out
}

// Totals sums a statistics list.
func Totals(list []models.SceneStatistics) models.SceneStatistics {
	var total models.SceneStatistics
	for _, s := range list {
		total.Events += s.Events
		total.Listeners += s.Listeners
		total.References += s.References
	}
	return total
}
