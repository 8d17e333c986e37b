package notify

import "time"

// Bus is an in-process pub/sub bus for index change notices.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Notice.Type(), or to every type with Wildcard.
// - Synchronous delivery: Publish calls handlers in the caller goroutine.
// - Error aggregation: handler errors are joined and returned from Publish/PublishBatch.
// - Optional observability: counters are kept only while observers are registered.
//
// All methods are safe for concurrent use, so a notice published from the poll loop can be
// consumed by a websocket hub running elsewhere.
type Bus interface {
	// Publish delivers the notice synchronously to every active subscriber of its type
	// and to wildcard subscribers.
	Publish(notice Notice) error
	// PublishBatch publishes notices in order and aggregates errors across them.
	PublishBatch(notices ...Notice) error
	// Subscribe registers a handler for one notice type, or for all of them when
	// noticeType is Wildcard.
	Subscribe(noticeType string, handler Handler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is accepted and ignored.
	Unsubscribe(Subscription) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics returns a snapshot of the counters collected while observed.
	Metrics() Metrics
}

// Wildcard subscribes to every notice type.
const Wildcard = "*"

// Notice types published by the manager.
const (
	ContainerAdded    = "container.added"
	ContainerRemoved  = "container.removed"
	EventsScanned     = "scan.events"
	ListenersScanned  = "scan.listeners"
	ReferencesScanned = "scan.references"
	IndexRebuilt      = "scan.full"
	ReferenceDropped  = "reference.dropped"
	ReferenceAssigned = "reference.assigned"
	ProjectReloaded   = "project.reloaded"
)

// Notice is an immutable message transported by the Bus.
type Notice interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	Handler func(notice Notice) error
)

// Subscription represents a registered handler bound to a notice type.
type Subscription interface {
	ID() string
	NoticeType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is told about every publish and delivery.
type Observer interface {
	OnPublish(noticeType string, notice Notice)
	OnDelivered(noticeType string, handlers int, err error, elapsed time.Duration)
}

type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
