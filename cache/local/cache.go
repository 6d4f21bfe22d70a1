package local

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

type entry struct {
	data     string
	expireAt time.Time // zero = never
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// ScoredMember is one sorted-set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// LocalCache is an in-process stand-in for the Redis cache: strings with
// TTL, score sets for the damage meters and capped lists for feeds. One
// mutex guards everything; the combat server's write rate is low.
type LocalCache struct {
	mu    sync.Mutex
	kv    map[string]entry
	zsets map[string]map[string]float64
	lists map[string][]string // index 0 = newest

	stop      chan struct{}
	closeOnce sync.Once
}

// NewCache creates a LocalCache and starts the expiry sweeper.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		kv:    make(map[string]entry),
		zsets: make(map[string]map[string]float64),
		lists: make(map[string][]string),
		stop:  make(chan struct{}),
	}
	go c.sweep(interval)
	return c, nil
}

// Close stops the sweeper. Stored data stays readable.
func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *LocalCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.mu.Lock()
			for k, e := range c.kv {
				if e.expired(now) {
					delete(c.kv, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// lookup returns a live entry, dropping it if it has expired. c.mu must be held.
func (c *LocalCache) lookup(key string) (entry, bool) {
	e, ok := c.kv[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(time.Now()) {
		delete(c.kv, key)
		return entry{}, false
	}
	return e, true
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

// Set stores value. ttl <= 0 keeps it until deleted.
func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{data: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.kv[key] = e
	c.mu.Unlock()
	return nil
}

// Del removes keys of any type.
func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
		delete(c.zsets, k)
		delete(c.lists, k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok, nil
}

// ---- Score sets ----

// ZIncrBy adds delta to member's score, creating it at zero, and returns the new score.
func (c *LocalCache) ZIncrBy(_ context.Context, key string, delta float64, member string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.zsets[key]
	if !ok {
		set = make(map[string]float64)
		c.zsets[key] = set
	}
	set[member] += delta
	return set[member], nil
}

// ZRevRangeWithScores returns members from highest to lowest score, ties
// broken by member. A negative stop means the end of the set.
func (c *LocalCache) ZRevRangeWithScores(_ context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	c.mu.Lock()
	ranked := make([]ScoredMember, 0, len(c.zsets[key]))
	for m, s := range c.zsets[key] {
		ranked = append(ranked, ScoredMember{Member: m, Score: s})
	}
	c.mu.Unlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Member < ranked[j].Member
	})
	lo, hi, ok := window(int64(len(ranked)), start, stop)
	if !ok {
		return nil, nil
	}
	return ranked[lo:hi], nil
}

func (c *LocalCache) ZScore(_ context.Context, key, member string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.zsets[key][member]
	if !ok {
		return 0, ErrNotFound
	}
	return s, nil
}

// ---- Lists ----

// PushCapped prepends value and keeps at most max newest items. max <= 0
// keeps everything.
func (c *LocalCache) PushCapped(_ context.Context, key string, max int64, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := append([]string{value}, c.lists[key]...)
	if max > 0 && int64(len(l)) > max {
		l = l[:max]
	}
	c.lists[key] = l
	return nil
}

// LRange returns items newest first. A negative stop means the end.
func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lists[key]
	lo, hi, ok := window(int64(len(l)), start, stop)
	if !ok {
		return nil, nil
	}
	out := make([]string, hi-lo)
	copy(out, l[lo:hi])
	return out, nil
}

// window converts an inclusive [start, stop] range over n items into slice
// bounds.
func window(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = 0
	}
	if start >= n {
		return 0, 0, false
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if stop < start {
		return 0, 0, false
	}
	return start, stop + 1, true
}
