package local

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSubscriberFull is returned by Publish when at least one subscriber's
// buffer was full and the message was dropped for it.
var ErrSubscriberFull = errors.New("pubsub: subscriber buffer full, message dropped")

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

type subscription struct {
	ch chan *LocalMessage
}

// LocalPubSub fans messages out to in-process subscribers. Publishing never
// blocks the combat frame: a slow subscriber loses messages instead.
type LocalPubSub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscription]struct{}
	bufSize int
	dropped atomic.Int64
}

// NewPubSub creates a LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		subs:    make(map[string]map[*subscription]struct{}),
		bufSize: bufSize,
	}
}

// Publish delivers message to every subscriber of channel that has room.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var missed int64
	for s := range ps.subs[channel] {
		select {
		case s.ch <- msg:
		default:
			missed++
		}
	}
	if missed > 0 {
		ps.dropped.Add(missed)
		return ErrSubscriberFull
	}
	return nil
}

// Dropped returns how many deliveries were skipped because of full buffers.
func (ps *LocalPubSub) Dropped() int64 { return ps.dropped.Load() }

// Subscribe registers for channels. The returned channel is closed when
// cancel is called or ctx ends.
func (ps *LocalPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	sub := &subscription{ch: make(chan *LocalMessage, ps.bufSize)}

	ps.mu.Lock()
	for _, c := range channels {
		set, ok := ps.subs[c]
		if !ok {
			set = make(map[*subscription]struct{})
			ps.subs[c] = set
		}
		set[sub] = struct{}{}
	}
	ps.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			for _, c := range channels {
				delete(ps.subs[c], sub)
				if len(ps.subs[c]) == 0 {
					delete(ps.subs, c)
				}
			}
			close(sub.ch)
			ps.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return sub.ch, cancel, nil
}
