package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_Defaults(t *testing.T) {
	a := New(nil)
	assert.Equal(t, 100.0, a.Effective(HP))
	assert.Equal(t, 150.0, a.Effective(CritDamage))
	assert.Equal(t, 100.0, a.Effective(HitRate))
	assert.Equal(t, 8.0, a.Base(DEF))
}

func TestAggregator_ThreeTierStacking(t *testing.T) {
	a := New(map[Stat]float64{ATK: 100})
	a.AddModifier(NewModifier(ATK, Flat, 20, "sword"))
	a.AddModifier(NewModifier(ATK, Percentage, 50, "rage"))
	a.AddModifier(NewModifier(ATK, Final, 10, "talent"))

	assert.InDelta(t, 198.0, a.Effective(ATK), 1e-4)
}

func TestAggregator_PercentagesSumBeforeMultiplying(t *testing.T) {
	a := New(map[Stat]float64{DEF: 100})
	a.AddModifier(NewModifier(DEF, Percentage, 30, "a"))
	a.AddModifier(NewModifier(DEF, Percentage, 20, "b"))
	assert.InDelta(t, 150.0, a.Effective(DEF), 1e-9)
}

func TestAggregator_ClampUnderAdversarialModifiers(t *testing.T) {
	a := New(nil)
	a.AddModifier(NewModifier(CritRate, Percentage, -500, "curse"))
	a.AddModifier(NewModifier(DodgeRate, Flat, 1000, "cheat"))
	a.AddModifier(NewModifier(CritDamage, Flat, -1000, "curse"))
	a.AddModifier(NewModifier(SkillHaste, Flat, 90, "haste"))
	a.AddModifier(NewModifier(HP, Final, -300, "doom"))

	assert.Equal(t, 0.0, a.Effective(CritRate))
	assert.Equal(t, 100.0, a.Effective(DodgeRate))
	assert.Equal(t, 100.0, a.Effective(CritDamage))
	assert.Equal(t, 40.0, a.Effective(SkillHaste))
	assert.Equal(t, 0.0, a.Effective(HP))

	for _, s := range All() {
		v := a.Effective(s)
		assert.GreaterOrEqual(t, v, Floor(s), s.String())
		if hi, ok := Cap(s); ok {
			assert.LessOrEqual(t, v, hi, s.String())
		}
	}
}

func TestAggregator_UnboundedStats(t *testing.T) {
	a := New(map[Stat]float64{ATK: 1e6})
	_, capped := Cap(ATK)
	assert.False(t, capped)
	assert.Equal(t, 1e6, a.Effective(ATK))
}

func TestAggregator_DirtyOnEveryMutation(t *testing.T) {
	a := New(map[Stat]float64{ATK: 10})
	assert.Equal(t, 10.0, a.Effective(ATK))

	a.SetBase(ATK, 20)
	assert.Equal(t, 20.0, a.Effective(ATK))

	m := NewModifier(ATK, Flat, 5, "ring")
	a.AddModifier(m)
	assert.Equal(t, 25.0, a.Effective(ATK))

	require.True(t, a.RemoveModifier(m.ID))
	assert.Equal(t, 20.0, a.Effective(ATK))
	assert.False(t, a.RemoveModifier(m.ID))
}

func TestAggregator_RemoveModifiersBySource(t *testing.T) {
	a := New(map[Stat]float64{ATK: 10, DEF: 10})
	a.AddModifier(NewModifier(ATK, Flat, 5, "item:1"))
	a.AddModifier(NewModifier(DEF, Flat, 5, "item:1"))
	a.AddModifier(NewModifier(DEF, Flat, 3, "item:2"))

	assert.Equal(t, 2, a.RemoveModifiersBySource("item:1"))
	assert.Equal(t, 10.0, a.Effective(ATK))
	assert.Equal(t, 13.0, a.Effective(DEF))
	assert.Equal(t, 0, a.RemoveModifiersBySource("item:1"))
}

func TestAggregator_ClearModifiers(t *testing.T) {
	a := New(map[Stat]float64{ATK: 10})
	a.AddModifier(NewModifier(ATK, Flat, 5, "x"))
	a.AddTimedModifier(NewModifier(ATK, Flat, 5, "y"), time.Second)
	a.ClearModifiers()
	assert.Equal(t, 10.0, a.Effective(ATK))
	assert.Empty(t, a.AllModifiers())
	assert.Nil(t, a.Update(2*time.Second))
}

func TestAggregator_ModifiersReturnsCopy(t *testing.T) {
	a := New(nil)
	a.AddModifier(NewModifier(ATK, Flat, 5, "x"))
	mods := a.Modifiers(ATK)
	mods[0].Value = 999
	assert.Equal(t, 15.0, a.Effective(ATK))
}

func TestAggregator_TimedModifierExpires(t *testing.T) {
	a := New(map[Stat]float64{ATK: 10})
	buff := NewModifier(ATK, Percentage, 100, "war_cry")
	a.AddTimedModifier(buff, 3*time.Second)
	assert.Equal(t, 20.0, a.Effective(ATK))

	assert.Empty(t, a.Update(2*time.Second))
	left, ok := a.Remaining(buff.ID)
	require.True(t, ok)
	assert.Equal(t, time.Second, left)

	expired := a.Update(time.Second)
	require.Len(t, expired, 1)
	assert.Equal(t, buff.ID, expired[0].ID)
	assert.Equal(t, 10.0, a.Effective(ATK))
	_, ok = a.Remaining(buff.ID)
	assert.False(t, ok)
}

func TestAggregator_RestoreRoundTrip(t *testing.T) {
	a := New(map[Stat]float64{HP: 500, ATK: 40})
	a.AddModifier(NewModifier(ATK, Flat, 10, "sword"))
	a.AddModifier(NewModifier(HP, Percentage, 20, "armor"))

	b := New(nil)
	b.Restore(a.BaseValues(), a.AllModifiers())

	for _, s := range All() {
		assert.Equal(t, a.Effective(s), b.Effective(s), s.String())
	}
}

func TestAggregator_CloneIsIndependent(t *testing.T) {
	a := New(map[Stat]float64{ATK: 10})
	c := a.Clone()
	c.AddModifier(NewModifier(ATK, Flat, 5, "x"))
	c.SetBase(DEF, 0)
	assert.Equal(t, 10.0, a.Effective(ATK))
	assert.Equal(t, 8.0, a.Effective(DEF))
	assert.Equal(t, 15.0, c.Effective(ATK))
}

func TestParseStat(t *testing.T) {
	s, err := ParseStat("CritRate")
	require.NoError(t, err)
	assert.Equal(t, CritRate, s)

	s, err = ParseStat("crit-damage")
	require.NoError(t, err)
	assert.Equal(t, CritDamage, s)

	_, err = ParseStat("luck")
	assert.Error(t, err)
}

func TestModifier_DisplayText(t *testing.T) {
	assert.Equal(t, "+20 atk", Modifier{Stat: ATK, Kind: Flat, Value: 20}.DisplayText())
	assert.Equal(t, "-15% def", Modifier{Stat: DEF, Kind: Percentage, Value: -15}.DisplayText())
	assert.Equal(t, "+10% hp (final)", Modifier{Stat: HP, Kind: Final, Value: 10}.DisplayText())
}

func TestAggregator_PermanentModifiersSkipsTimed(t *testing.T) {
	a := New(nil)
	ring := NewModifier(DEF, Flat, 5, "ring")
	a.AddModifier(ring)
	a.AddTimedModifier(NewModifier(DEF, Flat, 50, "shield"), time.Second)

	perm := a.PermanentModifiers()
	require.Len(t, perm, 1)
	assert.Equal(t, ring.ID, perm[0].ID)
	assert.Len(t, a.AllModifiers(), 2)
}
