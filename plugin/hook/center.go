package hook

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kasuganosora/combatcore/game/event"
)

// ErrInterrupt signals that a Hook handler wants to stop further processing.
var ErrInterrupt = errors.New("hook interrupted")

// Any registers a handler for every event type.
const Any = "*"

// HookFn is a hook handler function. Returning ErrInterrupt stops the
// remaining handlers for this event; other errors are logged and skipped.
type HookFn func(ctx context.Context, ev event.Event) error

type hookEntry struct {
	priority int
	seq      uint64
	fn       HookFn
	name     string
}

// HookCenter is the observer registry for combat events. It implements
// event.Sink so it can be handed straight to the arena.
type HookCenter struct {
	mu     sync.RWMutex
	hooks  map[string][]*hookEntry
	seq    uint64
	logger *zap.Logger
}

// NewHookCenter creates a new HookCenter.
func NewHookCenter(logger *zap.Logger) *HookCenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HookCenter{hooks: make(map[string][]*hookEntry), logger: logger}
}

// Register adds a HookFn for eventType (or Any) with the given priority
// (lower runs first). name is used for Unregister.
func (hc *HookCenter) Register(eventType string, priority int, name string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.seq++
	entries := append(hc.hooks[eventType], &hookEntry{priority: priority, seq: hc.seq, fn: fn, name: name})
	sortEntries(entries)
	hc.hooks[eventType] = entries
}

// Unregister removes all hooks with the given name for the given event type.
func (hc *HookCenter) Unregister(eventType, name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.hooks[eventType] = without(hc.hooks[eventType], name)
}

// UnregisterAll removes all hooks registered with the given name across all events.
func (hc *HookCenter) UnregisterAll(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for et, entries := range hc.hooks {
		hc.hooks[et] = without(entries, name)
	}
}

// Count returns how many handlers would run for eventType, wildcards included.
func (hc *HookCenter) Count(eventType string) int {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	n := len(hc.hooks[eventType])
	if eventType != Any {
		n += len(hc.hooks[Any])
	}
	return n
}

// Trigger runs every handler for ev in priority order, wildcard handlers
// interleaved by priority and then registration order.
func (hc *HookCenter) Trigger(ctx context.Context, ev event.Event) error {
	et := ev.EventType()

	hc.mu.RLock()
	entries := make([]*hookEntry, 0, len(hc.hooks[et])+len(hc.hooks[Any]))
	entries = append(entries, hc.hooks[et]...)
	entries = append(entries, hc.hooks[Any]...)
	hc.mu.RUnlock()
	sortEntries(entries)

	for _, e := range entries {
		err := e.fn(ctx, ev)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrInterrupt) {
			return err
		}
		hc.logger.Warn("hook handler failed",
			zap.String("event", et),
			zap.String("hook", e.name),
			zap.Error(err))
	}
	return nil
}

// Emit implements event.Sink.
func (hc *HookCenter) Emit(ev event.Event) {
	_ = hc.Trigger(context.Background(), ev)
}

func sortEntries(entries []*hookEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
}

func without(entries []*hookEntry, name string) []*hookEntry {
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	return entries[:n]
}
