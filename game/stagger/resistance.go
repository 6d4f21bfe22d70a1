package stagger

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/combatcore/game/dice"
	"github.com/kasuganosora/combatcore/game/event"
)

const (
	DefaultMaxArmor      = 100.0
	DefaultRecoveryRate  = 10.0
	DefaultBreakCooldown = 5 * time.Second

	minControlHitRate = 5.0
	maxControlHitRate = 95.0
)

// Config configures a Resistance. Zero Owner, Sink, Roller and Logger are
// replaced with no-op or clock-seeded defaults.
type Config struct {
	MaxArmor      float64
	RecoveryRate  float64 // armor per second
	Resistance    float64 // flat resist chance, percent
	BreakCooldown time.Duration
	Disabled      bool

	Owner  event.Handle
	Sink   event.Sink
	Roller dice.Roller
	Logger *zap.Logger
}

// DefaultConfig returns the stock super armor parameters.
func DefaultConfig() Config {
	return Config{
		MaxArmor:      DefaultMaxArmor,
		RecoveryRate:  DefaultRecoveryRate,
		BreakCooldown: DefaultBreakCooldown,
	}
}

// Resistance is a combatant's super armor and active crowd-control set.
// Not safe for concurrent use.
type Resistance struct {
	maxArmor      float64
	armor         float64
	recoveryRate  float64
	resistance    float64
	breakCooldown time.Duration
	cooldown      time.Duration
	enabled       bool
	broken        bool

	effects []*ControlEffect

	owner  event.Handle
	sink   event.Sink
	roller dice.Roller
	logger *zap.Logger
}

// New creates a Resistance at full armor.
func New(cfg Config) *Resistance {
	r := &Resistance{
		maxArmor:      max(cfg.MaxArmor, 0),
		recoveryRate:  cfg.RecoveryRate,
		resistance:    clampPercent(cfg.Resistance),
		breakCooldown: cfg.BreakCooldown,
		enabled:       !cfg.Disabled,
		owner:         cfg.Owner,
		sink:          event.OrDiscard(cfg.Sink),
		roller:        cfg.Roller,
		logger:        cfg.Logger,
	}
	r.armor = r.maxArmor
	if r.roller == nil {
		r.roller = dice.NewRoller(nil)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

func (r *Resistance) Armor() float64    { return r.armor }
func (r *Resistance) MaxArmor() float64 { return r.maxArmor }
func (r *Resistance) IsBroken() bool    { return r.broken }
func (r *Resistance) Enabled() bool     { return r.enabled }

// ResistChance returns the flat resist percentage.
func (r *Resistance) ResistChance() float64 { return r.resistance }

// Cooldown returns the time left before broken armor is restored.
func (r *Resistance) Cooldown() time.Duration { return r.cooldown }

// ArmorPercent returns armor as a fraction of max, 0 when max is 0.
func (r *Resistance) ArmorPercent() float64 {
	if r.maxArmor <= 0 {
		return 0
	}
	return r.armor / r.maxArmor
}

// HasSuperArmor reports whether crowd control is currently ignored.
func (r *Resistance) HasSuperArmor() bool {
	return r.enabled && r.armor > 0 && !r.broken
}

// Update advances the break cooldown, armor regeneration and every active
// effect by dt. It returns the effects that expired this tick.
func (r *Resistance) Update(dt time.Duration) []ControlEffect {
	if dt <= 0 {
		return nil
	}
	if r.cooldown > 0 {
		r.cooldown -= dt
	}
	if r.broken && r.cooldown <= 0 {
		r.restore()
	}

	if r.enabled && !r.broken && r.armor < r.maxArmor {
		r.armor = min(r.armor+r.recoveryRate*dt.Seconds(), r.maxArmor)
	}

	var expired []ControlEffect
	kept := r.effects[:0]
	for _, e := range r.effects {
		if e.Tick(dt) {
			kept = append(kept, e)
			continue
		}
		expired = append(expired, *e)
		r.sink.Emit(event.ControlRemoved{Subject: r.owner, Control: e.Type.String(), Expired: true})
	}
	clear(r.effects[len(kept):])
	r.effects = kept
	return expired
}

// TryApplyCrowdControl runs the super armor, toughness and resistance gates in
// order and inserts or refreshes effect if all pass.
func (r *Resistance) TryApplyCrowdControl(effect ControlEffect, toughness, skillHitRate float64) bool {
	if r.HasSuperArmor() {
		r.logger.Debug("crowd control absorbed by super armor",
			zap.Uint32("subject", uint32(r.owner)),
			zap.Stringer("control", effect.Type))
		return false
	}

	hitRate := skillHitRate * (1 - toughness/200)
	hitRate = min(max(hitRate, minControlHitRate), maxControlHitRate)
	if roll := r.roller.Roll(); roll >= hitRate {
		r.logger.Debug("crowd control resisted by toughness",
			zap.Uint32("subject", uint32(r.owner)),
			zap.Stringer("control", effect.Type),
			zap.Float64("toughness", toughness),
			zap.Float64("hit_rate", hitRate))
		return false
	}

	if r.resistance > 0 {
		if roll := r.roller.Roll(); roll < r.resistance {
			r.logger.Debug("crowd control resisted",
				zap.Uint32("subject", uint32(r.owner)),
				zap.Stringer("control", effect.Type),
				zap.Float64("resistance", r.resistance))
			return false
		}
	}

	r.apply(effect)
	return true
}

func (r *Resistance) apply(effect ControlEffect) {
	if existing := r.find(effect.Type); existing != nil {
		existing.Refresh()
		return
	}
	e := effect
	r.effects = append(r.effects, &e)
	r.sink.Emit(event.ControlApplied{
		Subject:  r.owner,
		Control:  e.Type.String(),
		Duration: e.Duration.Seconds(),
		Source:   e.Source,
	})
}

// TakeCrowdControlDamage spends armor. It returns true if the hit was
// resisted and false once armor breaks, or when armor is disabled or broken.
func (r *Resistance) TakeCrowdControlDamage(amount float64) bool {
	if !r.enabled || r.broken {
		return false
	}
	r.armor -= max(amount, 0)
	if r.armor <= 0 {
		r.breakArmor()
		return false
	}
	return true
}

func (r *Resistance) breakArmor() {
	r.armor = 0
	r.broken = true
	r.cooldown = r.breakCooldown
	r.sink.Emit(event.ArmorBroken{Subject: r.owner, Cooldown: r.breakCooldown.Seconds()})
	r.logger.Debug("super armor broken",
		zap.Uint32("subject", uint32(r.owner)),
		zap.Duration("cooldown", r.breakCooldown))
}

func (r *Resistance) restore() {
	r.broken = false
	r.armor = r.maxArmor
	r.cooldown = 0
	r.sink.Emit(event.ArmorRestored{Subject: r.owner, Armor: r.armor})
	r.logger.Debug("super armor restored", zap.Uint32("subject", uint32(r.owner)))
}

// RemoveCrowdControl drops the active effect of type t.
func (r *Resistance) RemoveCrowdControl(t CCType) bool {
	for i, e := range r.effects {
		if e.Type == t {
			r.effects = append(r.effects[:i], r.effects[i+1:]...)
			r.sink.Emit(event.ControlRemoved{Subject: r.owner, Control: t.String()})
			return true
		}
	}
	return false
}

func (r *Resistance) ClearCrowdControl() {
	for _, e := range r.effects {
		r.sink.Emit(event.ControlRemoved{Subject: r.owner, Control: e.Type.String()})
	}
	r.effects = nil
}

func (r *Resistance) HasCrowdControl(t CCType) bool { return r.find(t) != nil }

func (r *Resistance) HasAnyCrowdControl() bool { return len(r.effects) > 0 }

// ActiveEffects returns copies of the active effects in application order.
func (r *Resistance) ActiveEffects() []ControlEffect {
	out := make([]ControlEffect, len(r.effects))
	for i, e := range r.effects {
		out[i] = *e
	}
	return out
}

// CanMove reports whether no active effect locks movement.
func (r *Resistance) CanMove() bool {
	for _, e := range r.effects {
		if e.Type.PreventsMovement() {
			return false
		}
	}
	return true
}

// CanAct reports whether no active effect prevents attacking.
func (r *Resistance) CanAct() bool {
	for _, e := range r.effects {
		if e.Type.PreventsAction() {
			return false
		}
	}
	return true
}

// CanCast is CanAct without Silence.
func (r *Resistance) CanCast() bool { return r.CanAct() && !r.HasCrowdControl(Silence) }

// SetParameters changes max armor, regen and break cooldown. Armor above the
// new max is clamped.
func (r *Resistance) SetParameters(maxArmor, recoveryRate float64, breakCooldown time.Duration) {
	r.maxArmor = max(maxArmor, 0)
	r.recoveryRate = recoveryRate
	r.breakCooldown = breakCooldown
	if r.armor > r.maxArmor {
		r.armor = r.maxArmor
	}
}

func (r *Resistance) SetResistance(pct float64) { r.resistance = clampPercent(pct) }

// SetEnabled toggles super armor. Disabling also clears every active effect.
func (r *Resistance) SetEnabled(enabled bool) {
	r.enabled = enabled
	if !enabled {
		r.ClearCrowdControl()
	}
}

// RestoreArmorValue adds armor up to max. No-op while disabled or broken.
func (r *Resistance) RestoreArmorValue(amount float64) float64 {
	if !r.enabled || r.broken {
		return 0
	}
	before := r.armor
	r.armor = min(r.armor+max(amount, 0), r.maxArmor)
	return r.armor - before
}

func (r *Resistance) StatusText() string {
	switch {
	case !r.enabled:
		return "super armor disabled"
	case r.broken:
		return fmt.Sprintf("super armor broken (cooldown %.1fs)", r.cooldown.Seconds())
	case r.HasSuperArmor():
		return fmt.Sprintf("super armor %.0f/%.0f", r.armor, r.maxArmor)
	}
	return "no super armor"
}

func (r *Resistance) find(t CCType) *ControlEffect {
	for _, e := range r.effects {
		if e.Type == t {
			return e
		}
	}
	return nil
}

func clampPercent(v float64) float64 { return min(max(v, 0), 100) }
