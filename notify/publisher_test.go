package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kasuganosora/combatcore/cache"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/dice"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/plugin/hook"
	"github.com/kasuganosora/combatcore/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func receive(t *testing.T, ch <-chan *cache.Message) *cache.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message")
		return nil
	}
}

func TestEncode_Envelope(t *testing.T) {
	s, err := Encode(event.Died{Subject: 7})
	require.NoError(t, err)

	env, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, event.TypeDied, env.Type)

	var died event.Died
	require.NoError(t, json.Unmarshal(env.Data, &died))
	assert.Equal(t, event.Handle(7), died.Subject)
}

func TestPublisher_ForwardsEveryEvent(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "combat.events")
	require.NoError(t, err)
	defer cancel()

	hc := hook.NewHookCenter(zap.NewNop())
	pub := NewPublisher(ps, "combat.events", Config{})
	defer pub.Stop(context.Background())
	pub.Register(hc)

	hc.Emit(event.Spawned{Subject: 1, Name: "Knight"})
	hc.Emit(event.Damaged{Subject: 1, Amount: 5, HP: 95, MaxHP: 100})

	first, err := Decode(receive(t, ch).Payload)
	require.NoError(t, err)
	assert.Equal(t, event.TypeSpawned, first.Type)

	second, err := Decode(receive(t, ch).Payload)
	require.NoError(t, err)
	assert.Equal(t, event.TypeDamaged, second.Type)
}

type failingPubSub struct{}

func (failingPubSub) Publish(context.Context, string, string) error {
	return errors.New("broker down")
}

func (failingPubSub) Subscribe(context.Context, ...string) (<-chan *cache.Message, func(), error) {
	return nil, func() {}, nil
}

func TestPublisher_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := NewPublisher(failingPubSub{}, "x", Config{Logger: zap.New(core)})

	pub.Emit(event.Died{Subject: 1})
	pub.Stop(context.Background())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event publish failed", logs.All()[0].Message)
}

// stallingPubSub holds every Publish until its context ends.
type stallingPubSub struct{ calls chan struct{} }

func (s stallingPubSub) Publish(ctx context.Context, _, _ string) error {
	select {
	case s.calls <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (stallingPubSub) Subscribe(context.Context, ...string) (<-chan *cache.Message, func(), error) {
	return nil, func() {}, nil
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ps := stallingPubSub{calls: make(chan struct{}, 1)}
	pub := NewPublisher(ps, "x", Config{QueueSize: 1, Timeout: 50 * time.Millisecond, Logger: zap.New(core)})
	defer pub.Stop(context.Background())

	pub.Emit(event.Died{Subject: 1})
	<-ps.calls // worker is stuck on the first event
	pub.Emit(event.Died{Subject: 2})
	pub.Emit(event.Died{Subject: 3})

	dropped := logs.FilterMessage("event queue full, dropping event").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, event.TypeDied, dropped[0].ContextMap()["type"])
}

func TestPublisher_IgnoresEventsAfterStop(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	ch, cancel, err := ps.Subscribe(context.Background(), "x")
	require.NoError(t, err)
	defer cancel()

	pub := NewPublisher(ps, "x", Config{})
	pub.Stop(context.Background())
	pub.Stop(context.Background())
	pub.Emit(event.Died{Subject: 1})

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %q", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublisher_SlowBrokerDoesNotHoldArena(t *testing.T) {
	ps := stallingPubSub{calls: make(chan struct{}, 1)}
	pub := NewPublisher(ps, "x", Config{Timeout: time.Second})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		pub.Stop(ctx)
	}()

	hc := hook.NewHookCenter(zap.NewNop())
	pub.Register(hc)
	arena := battle.NewArena(battle.ArenaConfig{Roller: dice.Fixed(0, 99.9, 99.9), Sink: hc})
	hero := arena.Spawn(battle.SpawnConfig{Name: "hero"})
	slime := arena.Spawn(battle.SpawnConfig{Name: "slime"})

	start := time.Now()
	_, err := arena.Attack(hero, slime, 1, battle.Physical, "")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	done := make(chan int, 1)
	go func() { done <- arena.Len() }()
	select {
	case n := <-done:
		assert.Equal(t, 2, n)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("arena lock still held after Attack returned")
	}
}
