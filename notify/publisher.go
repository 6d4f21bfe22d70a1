package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/combatcore/cache"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/plugin/hook"
	"go.uber.org/zap"
)

const hookName = "notify"

// Envelope is the wire form of a published event.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Config tunes the publisher. Zero values fall back to the defaults below.
type Config struct {
	QueueSize int           // default 1024
	Timeout   time.Duration // per publish, default 1s
	Logger    *zap.Logger
}

// Publisher forwards combat events as JSON envelopes to a pub/sub channel.
// Events are queued and published by a background worker so a slow broker
// never holds up the caller.
type Publisher struct {
	ps      cache.PubSub
	channel string
	timeout time.Duration
	logger  *zap.Logger

	ch     chan event.Event
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewPublisher creates a Publisher writing to channel and starts its worker.
func NewPublisher(ps cache.PubSub, channel string, cfg Config) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p := &Publisher{
		ps:      ps,
		channel: channel,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		ch:      make(chan event.Event, cfg.QueueSize),
		stopCh:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

// Channel returns the channel events are published on.
func (p *Publisher) Channel() string { return p.channel }

// Register subscribes the publisher to every event on hc. It runs after
// the other hooks.
func (p *Publisher) Register(hc *hook.HookCenter) {
	hc.Register(hook.Any, 1000, hookName, func(ctx context.Context, ev event.Event) error {
		p.Emit(ev)
		return nil
	})
}

// Emit queues ev for publishing. It never blocks; a full queue drops the
// event and events emitted after Stop are ignored.
func (p *Publisher) Emit(ev event.Event) {
	select {
	case <-p.stopCh:
		return
	default:
	}
	select {
	case p.ch <- ev:
	default:
		p.logger.Warn("event queue full, dropping event",
			zap.String("channel", p.channel),
			zap.String("type", ev.EventType()))
	}
}

// Stop publishes what is already queued and shuts down the worker. The
// context bounds how long it waits.
func (p *Publisher) Stop(ctx context.Context) {
	p.once.Do(func() { close(p.stopCh) })
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("event publisher stop timed out", zap.Int("pending", len(p.ch)))
	}
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.ch:
			p.publish(ev)
		case <-p.stopCh:
			for {
				select {
				case ev := <-p.ch:
					p.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) publish(ev event.Event) {
	payload, err := Encode(ev)
	if err != nil {
		p.logger.Warn("event encode failed", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.ps.Publish(ctx, p.channel, payload); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("channel", p.channel),
			zap.String("type", ev.EventType()),
			zap.Error(err))
	}
}

// Encode renders ev as {"type": ..., "data": ...}.
func Encode(ev event.Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(Envelope{Type: ev.EventType(), Data: data})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Decode parses an envelope produced by Encode.
func Decode(payload string) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal([]byte(payload), &env)
	return env, err
}
