package health

import (
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/stats"
)

// StatSource supplies the maximums a pool is derived from.
type StatSource interface {
	Effective(s stats.Stat) float64
}

// Pool holds current HP and MP for one combatant. Maximums are always read
// from the stat source. Not safe for concurrent use.
type Pool struct {
	src   StatSource
	owner event.Handle
	sink  event.Sink

	hp, mp float64
	dead   bool
}

// NewPool creates a pool filled to its maximums.
func NewPool(src StatSource, owner event.Handle, sink event.Sink) *Pool {
	p := &Pool{src: src, owner: owner, sink: event.OrDiscard(sink)}
	p.InitializeToMax()
	return p
}

func (p *Pool) MaxHP() float64 { return p.src.Effective(stats.HP) }
func (p *Pool) MaxMP() float64 { return p.src.Effective(stats.MP) }
func (p *Pool) HP() float64    { return p.hp }
func (p *Pool) MP() float64    { return p.mp }
func (p *Pool) IsDead() bool   { return p.dead }

// HPPercent returns HP as a fraction of MaxHP in [0,1].
func (p *Pool) HPPercent() float64 { return fraction(p.hp, p.MaxHP()) }

// MPPercent returns MP as a fraction of MaxMP in [0,1].
func (p *Pool) MPPercent() float64 { return fraction(p.mp, p.MaxMP()) }

// InitializeToMax fills HP and MP and marks the pool alive.
func (p *Pool) InitializeToMax() {
	p.hp = p.MaxHP()
	p.mp = p.MaxMP()
	p.dead = false
}

// TakeDamage removes up to amount HP and returns what was actually removed.
// Reaching zero kills the pool exactly once. Dead pools take nothing.
func (p *Pool) TakeDamage(amount float64) float64 {
	if p.dead {
		return 0
	}
	amount = nonNegative(amount)
	actual := min(amount, p.hp)
	p.hp -= actual
	if actual > 0 {
		p.sink.Emit(event.Damaged{Subject: p.owner, Amount: actual, HP: p.hp, MaxHP: p.MaxHP()})
	}
	if p.hp <= 0 {
		p.hp = 0
		p.die()
	}
	return actual
}

// Heal restores up to amount HP, limited by headroom. Dead pools heal nothing.
func (p *Pool) Heal(amount float64) float64 {
	if p.dead {
		return 0
	}
	actual := min(nonNegative(amount), nonNegative(p.MaxHP()-p.hp))
	if actual <= 0 {
		return 0
	}
	p.hp += actual
	p.sink.Emit(event.Healed{Subject: p.owner, Amount: actual, HP: p.hp, MaxHP: p.MaxHP()})
	return actual
}

// HasEnoughMana reports whether cost can be paid right now.
func (p *Pool) HasEnoughMana(cost float64) bool {
	return !p.dead && p.mp >= nonNegative(cost)
}

// ConsumeMana pays cost. It fails without mutation when dead or short.
func (p *Pool) ConsumeMana(cost float64) bool {
	if !p.HasEnoughMana(cost) {
		return false
	}
	cost = nonNegative(cost)
	if cost > 0 {
		p.mp -= cost
		p.emitMana()
	}
	return true
}

// RestoreMana adds up to amount MP and returns what was actually restored.
func (p *Pool) RestoreMana(amount float64) float64 {
	if p.dead {
		return 0
	}
	actual := min(nonNegative(amount), nonNegative(p.MaxMP()-p.mp))
	if actual <= 0 {
		return 0
	}
	p.mp += actual
	p.emitMana()
	return actual
}

// Revive brings a dead pool back with the given fractions of its maximums.
// Fractions are clamped to [0,1]. Returns false if the pool was alive.
func (p *Pool) Revive(hpFraction, mpFraction float64) bool {
	if !p.dead {
		return false
	}
	p.hp = p.MaxHP() * clamp01(hpFraction)
	p.mp = p.MaxMP() * clamp01(mpFraction)
	p.dead = false
	p.sink.Emit(event.Revived{Subject: p.owner, HP: p.hp, MP: p.mp})
	return true
}

// SetHP overrides HP, clamped to [0, MaxHP]. Zero kills, a positive value on a
// dead pool revives it.
func (p *Pool) SetHP(v float64) {
	p.hp = min(nonNegative(v), nonNegative(p.MaxHP()))
	switch {
	case p.hp <= 0 && !p.dead:
		p.die()
	case p.hp > 0 && p.dead:
		p.dead = false
		p.sink.Emit(event.Revived{Subject: p.owner, HP: p.hp, MP: p.mp})
	}
}

// SetMP overrides MP, clamped to [0, MaxMP]. No-op while dead.
func (p *Pool) SetMP(v float64) {
	if p.dead {
		return
	}
	p.mp = min(nonNegative(v), nonNegative(p.MaxMP()))
	p.emitMana()
}

// Load replaces HP, MP and the dead flag with saved values, clamped to the
// current maximums. A dead pool keeps its MP and always has zero HP; an alive
// pool stays alive at zero HP. Only a change of state emits Died or Revived.
func (p *Pool) Load(hp, mp float64, dead bool) {
	wasDead := p.dead
	p.mp = min(nonNegative(mp), nonNegative(p.MaxMP()))
	p.hp = min(nonNegative(hp), nonNegative(p.MaxHP()))
	if dead {
		p.hp = 0
	}
	p.dead = dead
	switch {
	case dead && !wasDead:
		p.sink.Emit(event.Died{Subject: p.owner})
	case !dead && wasDead:
		p.sink.Emit(event.Revived{Subject: p.owner, HP: p.hp, MP: p.mp})
	}
}

// ClampToMax pulls HP and MP back under their maximums after a stat change.
// It never changes the alive state.
func (p *Pool) ClampToMax() {
	if maxHP := nonNegative(p.MaxHP()); p.hp > maxHP {
		p.hp = maxHP
	}
	if maxMP := nonNegative(p.MaxMP()); p.mp > maxMP {
		p.mp = maxMP
	}
}

func (p *Pool) die() {
	p.dead = true
	p.sink.Emit(event.Died{Subject: p.owner})
}

func (p *Pool) emitMana() {
	p.sink.Emit(event.ManaChanged{Subject: p.owner, MP: p.mp, MaxMP: p.MaxMP()})
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func fraction(cur, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return clamp01(cur / total)
}
