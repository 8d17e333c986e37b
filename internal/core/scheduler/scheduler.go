package scheduler

import "time"

// DefaultCooldown bounds how stale the index may get between automatic rescans.
const DefaultCooldown = 4 * time.Second

// Scheduler is the rescan debounce policy. It is driven by explicit Tick calls from
// the host poll loop and never starts timers of its own.
//
// A rescan is due when the tracked container count differs from the count seen at
// the last rescan, or when the elapsed time reaches the cooldown.
type Scheduler struct {
	cooldown  time.Duration
	elapsed   time.Duration
	lastCount int
	stale     bool
}

type Option func(*Scheduler)

// WithCooldown overrides DefaultCooldown. Non-positive values are ignored.
func WithCooldown(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{cooldown: DefaultCooldown}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldRescan reports whether a rescan is due for the given container count. When
// it returns true the elapsed time is reset and the count remembered.
func (s *Scheduler) ShouldRescan(count int) bool {
	if !s.stale && count == s.lastCount && s.elapsed < s.cooldown {
		return false
	}
	s.elapsed = 0
	s.lastCount = count
	s.stale = false
	return true
}

// Tick advances the time since the last rescan.
func (s *Scheduler) Tick(delta time.Duration) {
	if delta > 0 {
		s.elapsed += delta
	}
}

// Invalidate forces the next ShouldRescan to report true, as a membership change
// would. Registries call it when a container is added or removed.
func (s *Scheduler) Invalidate() { s.stale = true }

// Reset records a rescan performed outside ShouldRescan.
func (s *Scheduler) Reset(count int) {
	s.elapsed = 0
	s.lastCount = count
	s.stale = false
}

func (s *Scheduler) Elapsed() time.Duration  { return s.elapsed }
func (s *Scheduler) Cooldown() time.Duration { return s.cooldown }
