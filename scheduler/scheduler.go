package scheduler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FrameFn receives the wall time elapsed since the previous frame.
type FrameFn func(dt time.Duration)

// TaskFn is the function signature for plain periodic tasks.
type TaskFn func()

// Scheduler runs named fixed-interval loops, each on its own goroutine.
type Scheduler struct {
	mu     sync.Mutex
	loops  map[string]*loopEntry
	logger *zap.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type loopEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		loops:  make(map[string]*loopEntry),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

// AddLoop registers a frame loop firing every interval. fn gets the measured
// elapsed time, so a late frame still advances the simulation correctly.
// If a loop with the same name exists, it is replaced.
func (s *Scheduler) AddLoop(name string, interval time.Duration, fn FrameFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.loops[name]; ok {
		close(old.stopCh)
		delete(s.loops, name)
	}

	entry := &loopEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	s.loops[name] = entry

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		last := time.Now()
		for {
			select {
			case now := <-entry.ticker.C:
				dt := now.Sub(last)
				last = now
				s.run(name, func() { fn(dt) })
			case <-entry.stopCh:
				entry.ticker.Stop()
				return
			case <-s.stopCh:
				entry.ticker.Stop()
				return
			}
		}
	}()
	s.logger.Info("scheduler loop registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddTicker registers a task that ignores frame timing.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.AddLoop(name, interval, func(time.Duration) { fn() })
}

func (s *Scheduler) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}

// Remove stops and removes a loop by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.loops[name]; ok {
		close(entry.stopCh)
		delete(s.loops, name)
	}
}

// Stop stops all loops and waits for running frames to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// List returns the names of all registered loops, sorted.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.loops))
	for name := range s.loops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
