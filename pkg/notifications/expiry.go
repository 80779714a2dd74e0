package notifications

import (
	"sync"
	"time"
)

// DefaultExpiryDelay is how long an ephemeral success/info notification stays visible.
const DefaultExpiryDelay = 5 * time.Second

// expiryScheduler arms one-shot timers keyed by notification id.
// It holds ids only; the fire callback must treat unknown ids as already handled.
type expiryScheduler struct {
	fire    func(id string)
	timers  map[string]*expiryTimer
	stopped bool
	mu      sync.Mutex
}

type expiryTimer struct {
	t *time.Timer
}

func newExpiryScheduler(fire func(id string)) *expiryScheduler {
	return &expiryScheduler{
		fire:   fire,
		timers: make(map[string]*expiryTimer),
	}
}

// Arm schedules fire(id) after delay, replacing any timer already armed for id.
func (s *expiryScheduler) Arm(id string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if prev, ok := s.timers[id]; ok {
		prev.t.Stop()
	}

	entry := &expiryTimer{}
	entry.t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// A re-arm or cancel may have replaced this timer after it fired.
		if cur, ok := s.timers[id]; !ok || cur != entry {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()

		s.fire(id)
	})
	s.timers[id] = entry
}

// Cancel disarms the timer for id. Unknown ids are ignored.
func (s *expiryScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.timers[id]; ok {
		entry.t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of armed timers.
func (s *expiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms every timer. Later calls to Arm are ignored.
func (s *expiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, entry := range s.timers {
		entry.t.Stop()
		delete(s.timers, id)
	}
}
