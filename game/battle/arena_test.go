package battle

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/combatcore/game/dice"
	"github.com/kasuganosora/combatcore/game/element"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/stagger"
	"github.com/kasuganosora/combatcore/game/stats"
)

func newArena(rolls ...float64) (*Arena, *event.Recorder) {
	rec := &event.Recorder{}
	return NewArena(ArenaConfig{Roller: dice.Fixed(rolls...), Sink: rec}), rec
}

func TestArena_SpawnAssignsHandles(t *testing.T) {
	a, rec := newArena()
	h1 := a.Spawn(SpawnConfig{Name: "hero"})
	h2 := a.Spawn(SpawnConfig{Name: "slime"})

	assert.NotZero(t, h1)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, []event.Handle{h1, h2}, a.Handles())
	assert.Equal(t, 2, rec.Count(event.TypeSpawned))
}

func TestArena_AttackByHandle(t *testing.T) {
	a, rec := newArena(plainRolls...)
	hero := a.Spawn(SpawnConfig{Name: "hero", Base: map[stats.Stat]float64{stats.ATK: 50}})
	slime := a.Spawn(SpawnConfig{Name: "slime", Base: map[stats.Stat]float64{stats.HP: 300, stats.DEF: 0}})

	rep, err := a.Attack(hero, slime, 2, Physical, "slash")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rep.FinalDamage, 1e-9)
	assert.Equal(t, hero, rep.Attacker)
	assert.Equal(t, slime, rep.Defender)

	snap, err := a.Snapshot(slime)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, snap.HP, 1e-9)
	assert.Equal(t, 1, rec.Count(event.TypeAttackResolved))
	assert.Equal(t, 1, rec.Count(event.TypeDamaged))
}

func TestArena_DespawnedCombatantIsNotFound(t *testing.T) {
	a, _ := newArena(plainRolls...)
	hero := a.Spawn(SpawnConfig{Name: "hero"})
	slime := a.Spawn(SpawnConfig{Name: "slime"})

	require.NoError(t, a.Despawn(slime))
	_, err := a.Attack(hero, slime, 1, Physical, "")
	assert.True(t, errors.Is(err, ErrUnknownCombatant))
	assert.ErrorIs(t, a.Despawn(slime), ErrUnknownCombatant)
	_, err = a.Snapshot(slime)
	assert.ErrorIs(t, err, ErrUnknownCombatant)
}

func TestArena_DeadAttackerCannotAttack(t *testing.T) {
	a, _ := newArena(plainRolls...)
	hero := a.Spawn(SpawnConfig{Name: "hero"})
	slime := a.Spawn(SpawnConfig{Name: "slime"})
	_, err := a.DealRawDamage(hero, 1000, True, "lava")
	require.NoError(t, err)

	_, err = a.Attack(hero, slime, 1, Physical, "")
	assert.ErrorIs(t, err, ErrCombatantDead)
}

func TestArena_ExpectedDamage(t *testing.T) {
	a, _ := newArena()
	hero := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.ATK: 100, stats.CritRate: 0}})
	wall := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.DEF: 100, stats.DodgeRate: 0}})

	v, err := a.ExpectedDamage(hero, wall, 1, Physical)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, v, 1e-9)
}

func TestArena_CrowdControlAgainstSuperArmor(t *testing.T) {
	a, rec := newArena(0)
	cfg := stagger.DefaultConfig()
	boss := a.Spawn(SpawnConfig{Name: "boss", SuperArmor: &cfg})
	effect := stagger.NewControlEffect(stagger.Stun, 2*time.Second, 0, "bash")

	res, err := a.ApplyCrowdControl(boss, effect, 60, 100)
	require.NoError(t, err)
	assert.Equal(t, CrowdControlResult{Absorbed: true}, res)

	res, err = a.ApplyCrowdControl(boss, effect, 60, 100)
	require.NoError(t, err)
	assert.Equal(t, CrowdControlResult{Absorbed: true, ArmorBroken: true}, res)
	assert.Equal(t, 1, rec.Count(event.TypeArmorBroken))

	res, err = a.ApplyCrowdControl(boss, effect, 60, 100)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	snap, _ := a.Snapshot(boss)
	require.Len(t, snap.Controls, 1)
	assert.Equal(t, "stun", snap.Controls[0].Type)
	assert.True(t, snap.ArmorBroken)
}

func TestArena_CrowdControlWithoutSuperArmorUsesToughness(t *testing.T) {
	a, _ := newArena(60)
	grunt := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.Toughness: 100}})
	effect := stagger.NewControlEffect(stagger.Root, time.Second, 0, "")

	// hit rate 100 × (1 − 100/200) = 50, roll 60 misses
	res, err := a.ApplyCrowdControl(grunt, effect, 0, 100)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.False(t, res.Absorbed)
}

func TestArena_UpdateExpiresTimedModifiers(t *testing.T) {
	a, rec := newArena()
	h := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.HP: 100}})
	require.NoError(t, a.AddModifier(h, stats.NewModifier(stats.HP, stats.Flat, 50, "feast"), 2*time.Second))

	a.Update(time.Second)
	snap, _ := a.Snapshot(h)
	assert.Equal(t, 150.0, snap.MaxHP)

	a.Update(time.Second)
	snap, _ = a.Snapshot(h)
	assert.Equal(t, 100.0, snap.MaxHP)
	assert.Equal(t, 100.0, snap.HP)
	assert.Equal(t, 1, rec.Count(event.TypeModifierExpired))
}

func TestArena_TimedRevive(t *testing.T) {
	a, rec := newArena()
	h := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.HP: 200, stats.MP: 100}})

	assert.ErrorIs(t, a.StartRevive(h, time.Second, 0.5, 0.5), ErrCombatantAlive)

	_, err := a.DealRawDamage(h, 500, True, "")
	require.NoError(t, err)
	require.NoError(t, a.StartRevive(h, 3*time.Second, 0.5, 0.5))

	a.Update(2 * time.Second)
	snap, _ := a.Snapshot(h)
	assert.True(t, snap.Dead)
	assert.True(t, snap.Reviving)

	a.Update(time.Second)
	snap, _ = a.Snapshot(h)
	assert.False(t, snap.Dead)
	assert.Equal(t, 100.0, snap.HP)
	assert.Equal(t, 50.0, snap.MP)
	assert.Equal(t, 1, rec.Count(event.TypeRevived))
}

func TestArena_StateRestoreRoundTrip(t *testing.T) {
	a, _ := newArena()
	h := a.Spawn(SpawnConfig{
		Name:      "hero",
		Element:   element.Light,
		Base:      map[stats.Stat]float64{stats.HP: 500, stats.ATK: 40},
		Modifiers: []stats.Modifier{stats.NewModifier(stats.ATK, stats.Flat, 10, "sword")},
	})
	_, err := a.DealRawDamage(h, 120, True, "")
	require.NoError(t, err)

	st, err := a.State(h)
	require.NoError(t, err)

	h2 := a.Spawn(SpawnConfig{})
	require.NoError(t, a.Restore(h2, st))

	s1, _ := a.Snapshot(h)
	s2, _ := a.Snapshot(h2)
	assert.Equal(t, s1.Stats, s2.Stats)
	assert.Equal(t, s1.HP, s2.HP)
	assert.Equal(t, "hero", s2.Name)
	assert.Equal(t, "light", s2.Element)
}

func TestArena_RestoreDead(t *testing.T) {
	a, _ := newArena()
	h := a.Spawn(SpawnConfig{})
	require.NoError(t, a.Restore(h, State{Dead: true}))
	snap, _ := a.Snapshot(h)
	assert.True(t, snap.Dead)
	assert.Equal(t, 0.0, snap.HP)
}

func TestArena_RestoreDeadKeepsMana(t *testing.T) {
	a, rec := newArena()
	h := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.HP: 100, stats.MP: 80}})
	require.NoError(t, a.Restore(h, State{HP: 0, MP: 30, Dead: true}))

	snap, _ := a.Snapshot(h)
	assert.True(t, snap.Dead)
	assert.Equal(t, 0.0, snap.HP)
	assert.Equal(t, 30.0, snap.MP)
	assert.Equal(t, 1, rec.Count(event.TypeDied))
}

func TestArena_RestoreAliveAtZeroHP(t *testing.T) {
	a, rec := newArena()
	h := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.HP: 100, stats.MP: 80}})
	st, err := a.State(h)
	require.NoError(t, err)
	st.HP, st.MP, st.Dead = 0, 20, false

	require.NoError(t, a.Restore(h, st))
	snap, _ := a.Snapshot(h)
	assert.False(t, snap.Dead)
	assert.Equal(t, 0.0, snap.HP)
	assert.Equal(t, 20.0, snap.MP)
	assert.Zero(t, rec.Count(event.TypeDied))

	// a save taken while dead brings a living combatant down, and back up
	require.NoError(t, a.Restore(h, State{Bases: st.Bases, MP: 5, Dead: true}))
	require.NoError(t, a.Restore(h, State{Bases: st.Bases, HP: 40, MP: 5}))
	snap, _ = a.Snapshot(h)
	assert.False(t, snap.Dead)
	assert.Equal(t, 40.0, snap.HP)
	assert.Equal(t, 1, rec.Count(event.TypeDied))
	assert.Equal(t, 1, rec.Count(event.TypeRevived))
}

func TestArena_ConcurrentAccess(t *testing.T) {
	a := NewArena(ArenaConfig{Roller: dice.NewSeededRoller(1)})
	hero := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.ATK: 1}})
	dummy := a.Spawn(SpawnConfig{Base: map[stats.Stat]float64{stats.HP: 1e9}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = a.Attack(hero, dummy, 1, Physical, "")
				a.Update(time.Millisecond)
				_ = a.Snapshots()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, a.Len())
}
