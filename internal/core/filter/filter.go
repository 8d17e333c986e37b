package filter

import (
	"fmt"
	"strings"

	"github.com/zeusync/eventscope/internal/core/models"
	"github.com/zeusync/eventscope/pkg/sequence"
)

// Kind selects one of the four filterable entity lists.
type Kind uint8

const (
	KindContainers Kind = iota
	KindEvents
	KindListeners
	KindReferences
)

func (k Kind) String() string {
	switch k {
	case KindContainers:
		return "containers"
	case KindEvents:
		return "events"
	case KindListeners:
		return "listeners"
	case KindReferences:
		return "references"
	default:
		return "unknown"
	}
}

// ParseKind accepts the names produced by Kind.String plus a few short forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "containers", "container", "scenes":
		return KindContainers, nil
	case "events", "event":
		return KindEvents, nil
	case "listeners", "listener":
		return KindListeners, nil
	case "references", "reference", "refs", "ref":
		return KindReferences, nil
	default:
		return 0, fmt.Errorf("filter: unknown kind %q", s)
	}
}

// Entity is one row of a filterable list. Value holds the underlying
// *models.Container, *models.Event, models.ListenerEntry or models.FieldReference.
type Entity struct {
	Kind      Kind
	Name      string
	Container string
	Value     any
}

// Scoped reports whether the container mask applies to the entity. Containers and
// catalog events are matched by text only.
func (e Entity) Scoped() bool {
	return e.Kind == KindListeners || e.Kind == KindReferences
}

func FromContainer(c *models.Container) Entity {
	return Entity{Kind: KindContainers, Name: c.Name(), Value: c}
}

func FromEvent(e *models.Event) Entity {
	return Entity{Kind: KindEvents, Name: e.Name(), Value: e}
}

func FromListener(l models.ListenerEntry) Entity {
	return Entity{Kind: KindListeners, Name: l.DisplayName(), Container: l.ContainerName(), Value: l}
}

func FromReference(r models.FieldReference) Entity {
	return Entity{Kind: KindReferences, Name: r.DisplayName(), Container: r.ContainerName(), Value: r}
}

// MatchText is a case-insensitive substring match. The empty filter matches
// everything.
func MatchText(name, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(text))
}

// Apply returns the entities whose name matches text and, for scoped kinds, whose
// container is one of selected. A nil selected list accepts every container.
// Input order is preserved.
func Apply(entities []Entity, text string, selected []string) []Entity {
	var allowed map[string]struct{}
	if selected != nil {
		allowed = sequence.ToSet(sequence.From(selected))
	}
	return sequence.From(entities).Filter(func(e Entity) bool {
		if !MatchText(e.Name, text) {
			return false
		}
		if allowed == nil || !e.Scoped() {
			return true
		}
		_, ok := allowed[e.Container]
		return ok
	}).Collect()
}
