package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type simpleNotice struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
}

func (n simpleNotice) Type() string         { return n.typeStr }
func (n simpleNotice) Source() string       { return n.source }
func (n simpleNotice) Timestamp() time.Time { return n.ts }
func (n simpleNotice) Data() any            { return n.data }

// NewNotice creates a Notice stamped with the current time.
func NewNotice(typ, src string, data any) Notice {
	return simpleNotice{typeStr: typ, source: src, ts: time.Now(), data: data}
}

type subscription struct {
	id         string
	noticeType string
	handler    Handler

	mu     sync.Mutex
	active bool
	cancel func()
}

func (s *subscription) ID() string         { return s.id }
func (s *subscription) NoticeType() string { return s.noticeType }

func (s *subscription) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *subscription) Cancel() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

type inMemoryBus struct {
	mu sync.RWMutex
	// handlers: noticeType -> subID -> subscription
	handlers  map[string]map[string]*subscription
	metrics   Metrics
	observers map[Observer]struct{}
}

var _ Bus = (*inMemoryBus)(nil)

// New creates an empty Bus.
func New() Bus {
	return &inMemoryBus{
		handlers:  make(map[string]map[string]*subscription),
		observers: make(map[Observer]struct{}),
	}
}

func (b *inMemoryBus) Publish(notice Notice) error {
	return b.deliver(notice)
}

func (b *inMemoryBus) PublishBatch(notices ...Notice) error {
	var all error
	for _, n := range notices {
		if err := b.Publish(n); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}

func (b *inMemoryBus) Subscribe(noticeType string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("notify: nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[noticeType] == nil {
		b.handlers[noticeType] = make(map[string]*subscription)
	}
	id := uuid.NewString()
	s := &subscription{id: id, noticeType: noticeType, handler: handler, active: true}
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.handlers[noticeType]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.handlers, noticeType)
			}
		}
	}
	b.handlers[noticeType][id] = s
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) AddObserver(obs Observer) {
	b.mu.Lock()
	b.observers[obs] = struct{}{}
	b.mu.Unlock()
}

func (b *inMemoryBus) RemoveObserver(obs Observer) {
	b.mu.Lock()
	delete(b.observers, obs)
	b.mu.Unlock()
}

func (b *inMemoryBus) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

func (b *inMemoryBus) deliver(notice Notice) error {
	start := time.Now()
	ntype := notice.Type()

	b.mu.RLock()
	var subs []*subscription
	keys := []string{ntype}
	if ntype != Wildcard {
		keys = append(keys, Wildcard)
	}
	for _, key := range keys {
		for _, s := range b.handlers[key] {
			subs = append(subs, s)
		}
	}
	observers := make([]Observer, 0, len(b.observers))
	for obs := range b.observers {
		observers = append(observers, obs)
	}
	b.mu.RUnlock()

	for _, obs := range observers {
		obs.OnPublish(ntype, notice)
	}

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		delivered++
		if err := s.handler(notice); err != nil {
			all = errors.Join(all, err)
		}
	}

	if len(observers) > 0 {
		elapsed := time.Since(start)
		for _, obs := range observers {
			obs.OnDelivered(ntype, delivered, all, elapsed)
		}
		// counters only move while someone is watching
		b.mu.Lock()
		b.metrics.Published++
		b.metrics.DeliveredHandlers += uint64(delivered)
		if all != nil {
			b.metrics.Errors++
		}
		var active uint64
		for _, m := range b.handlers {
			active += uint64(len(m))
		}
		b.metrics.SubscribersActive = active
		b.mu.Unlock()
	}
	return all
}
