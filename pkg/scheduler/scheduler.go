// Package scheduler runs a background tick loop that wakes roughly every
// millisecond and drives every registered TickComponent in priority
// order, using a monotonic clock that survives suspend/resume.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/nicmidi-go/midiseq/pkg/logger"
)

// TickComponent is driven by the scheduler once per tick.
type TickComponent interface {
	// Start is called once, synchronously, when the component is
	// registered.
	Start()
	// Stop is called once, synchronously, when the component is
	// unregistered (or on Scheduler.Stop).
	Stop()
	// Tick is called on the scheduler goroutine with the current
	// monotonic millisecond clock value.
	Tick(nowMs int64)
	// Priority orders components within a single tick; lower runs first.
	Priority() int
}

// Interval is the scheduler's wake period. Real hardware jitter means
// this is "roughly" 1ms, not an exact guarantee.
const Interval = time.Millisecond

// Scheduler is a background worker that ticks registered components.
// The zero value is not usable; construct with New. A single process-wide
// instance is available via Default for production use; tests construct
// their own so runs do not interfere with each other.
type Scheduler struct {
	mu         sync.Mutex
	components []TickComponent
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	startTime  time.Time
}

// New returns a stopped Scheduler with no registered components.
func New() *Scheduler {
	return &Scheduler{}
}

var (
	defaultOnce sync.Once
	defaultInst *Scheduler
)

// Default returns the process-wide Scheduler singleton, created lazily on
// first use.
func Default() *Scheduler {
	defaultOnce.Do(func() { defaultInst = New() })
	return defaultInst
}

// NowMs returns milliseconds since the scheduler's monotonic origin. The
// origin is arbitrary; only differences between calls are meaningful.
// Before the scheduler has ever run, NowMs reports 0.
func (s *Scheduler) NowMs() int64 {
	s.mu.Lock()
	origin := s.startTime
	s.mu.Unlock()
	if origin.IsZero() {
		return 0
	}
	return time.Since(origin).Milliseconds()
}

// Register adds c to the tick set. The scheduler starts lazily if this is
// the first registration. Registration is serialized against in-flight
// ticks: c never observes a partially applied tick list.
func (s *Scheduler) Register(c TickComponent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.components = append(s.components, c)
	sort.SliceStable(s.components, func(i, j int) bool {
		return s.components[i].Priority() < s.components[j].Priority()
	})

	if !s.running {
		s.startLocked()
	}
	c.Start()
}

// Unregister removes c from the tick set. The scheduler stops when the
// last component is removed.
func (s *Scheduler) Unregister(c TickComponent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.components {
		if existing == c {
			s.components = append(s.components[:i], s.components[i+1:]...)
			break
		}
	}
	c.Stop()

	if len(s.components) == 0 && s.running {
		s.stopLocked()
	}
}

// startLocked must be called with s.mu held.
func (s *Scheduler) startLocked() {
	s.startTime = time.Now()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	go s.loop(s.stopCh, s.doneCh)
	logger.GetLogger().Debug("scheduler started")
}

// stopLocked must be called with s.mu held.
func (s *Scheduler) stopLocked() {
	close(s.stopCh)
	done := s.doneCh
	s.running = false
	s.mu.Unlock()
	<-done
	s.mu.Lock()
	logger.GetLogger().Debug("scheduler stopped")
}

// Stop forces the scheduler down regardless of registered components,
// calling Stop on each of them. Intended for test cleanup and process
// shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	for _, c := range s.components {
		c.Stop()
	}
	s.components = nil
	s.stopLocked()
}

// Running reports whether the scheduler's tick goroutine is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			origin := s.startTime
			components := make([]TickComponent, len(s.components))
			copy(components, s.components)
			s.mu.Unlock()

			nowMs := now.Sub(origin).Milliseconds()
			for _, c := range components {
				c.Tick(nowMs)
			}
		}
	}
}
