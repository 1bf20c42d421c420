package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const minInterval = time.Minute

// RunFunc is the function called when the scheduler fires a cycle.
type RunFunc func(ctx context.Context) error

// cycleGuard provides non-blocking lock semantics using atomic operations
// so a tick that arrives while a cycle is still running is skipped
// instead of queued. Cycles never overlap.
type cycleGuard struct {
	state atomic.Int32 // 0 = idle, 1 = running
}

func (g *cycleGuard) TryAcquire() bool {
	return g.state.CompareAndSwap(0, 1)
}

func (g *cycleGuard) Release() {
	g.state.Store(0)
}

// State is a snapshot of the scheduler for reporting surfaces.
type State struct {
	Enabled   bool
	Interval  time.Duration
	NextRunAt time.Time
	LastRunAt time.Time
}

// Scheduler fires discovery + workflow cycles at a fixed interval. A new
// cycle does not start before the prior one's persistence completes.
type Scheduler struct {
	mu        sync.RWMutex
	enabled   bool
	interval  time.Duration
	nextRunAt time.Time
	lastRunAt time.Time
	runFunc   RunFunc
	guard     cycleGuard
	cancel    context.CancelFunc
	ticker    *time.Ticker
}

// New creates a scheduler that calls runFunc every interval.
func New(interval time.Duration, runFunc RunFunc) *Scheduler {
	if interval < minInterval {
		interval = minInterval
	}

	return &Scheduler{
		interval: interval,
		runFunc:  runFunc,
	}
}

// Start starts the scheduler loop. The first cycle fires after one full
// interval; callers wanting an immediate cycle run it before Start.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled || s.runFunc == nil {
		return
	}

	s.enabled = true
	s.nextRunAt = time.Now().Add(s.interval)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.ticker = time.NewTicker(s.interval)

	go s.loop(loopCtx)

	log.Printf("Scheduler started with interval %v, next cycle at %s",
		s.interval, s.nextRunAt.Format("15:04:05"))
}

// Stop stops the scheduler. A cycle already in flight finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}

	s.enabled = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.nextRunAt = time.Time{}

	log.Println("Scheduler stopped")
}

// loop is the main scheduler loop
func (s *Scheduler) loop(ctx context.Context) {
	for {
		s.mu.RLock()
		ticker := s.ticker
		s.mu.RUnlock()

		if ticker == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick handles one scheduler tick
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	runFunc := s.runFunc
	enabled := s.enabled
	s.nextRunAt = time.Now().Add(s.interval)
	s.mu.Unlock()

	if !enabled || runFunc == nil {
		return
	}

	if !s.guard.TryAcquire() {
		log.Println("Scheduler: skipping tick, previous cycle still running")
		return
	}
	defer s.guard.Release()

	// LastRunAt only moves for ticks that actually run a cycle.
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.mu.Unlock()

	if err := runFunc(ctx); err != nil {
		log.Printf("Scheduler: cycle failed: %v", err)
	}
}

// RunNow fires a cycle immediately, unless one is already in flight.
// Returns false when the cycle was skipped.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	s.mu.RLock()
	runFunc := s.runFunc
	s.mu.RUnlock()

	if runFunc == nil || !s.guard.TryAcquire() {
		return false
	}
	defer s.guard.Release()

	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.mu.Unlock()

	if err := runFunc(ctx); err != nil {
		log.Printf("Scheduler: cycle failed: %v", err)
	}
	return true
}

// GetState returns the current scheduler state.
func (s *Scheduler) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Enabled:   s.enabled,
		Interval:  s.interval,
		NextRunAt: s.nextRunAt,
		LastRunAt: s.lastRunAt,
	}
}

// IsEnabled returns whether the scheduler is running.
func (s *Scheduler) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}
