package battle

import (
	"go.uber.org/zap"

	"github.com/kasuganosora/combatcore/game/dice"
	"github.com/kasuganosora/combatcore/game/element"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/stats"
)

// StatReader exposes effective stat values.
type StatReader interface {
	Effective(s stats.Stat) float64
}

// Damageable is the mutation surface of a resource pool.
type Damageable interface {
	TakeDamage(amount float64) float64
	Heal(amount float64) float64
}

// Target bundles what an attack needs from the defender.
type Target struct {
	Handle  event.Handle
	Stats   StatReader
	Pool    Damageable
	Element element.Element
}

// ResolverConfig configures a Resolver for one attacker.
type ResolverConfig struct {
	Owner   event.Handle
	Stats   StatReader
	Element element.Element
	Table   *element.AffinityTable // nil = default chart
	Roller  dice.Roller            // nil = clock seeded
	Sink    event.Sink
	Logger  *zap.Logger
}

// Resolver resolves attacks made by one combatant.
type Resolver struct {
	owner   event.Handle
	stats   StatReader
	element element.Element
	table   *element.AffinityTable
	roller  dice.Roller
	sink    event.Sink
	logger  *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Table == nil {
		cfg.Table = element.NewAffinityTable(cfg.Logger)
	}
	if cfg.Roller == nil {
		cfg.Roller = dice.NewRoller(nil)
	}
	return &Resolver{
		owner:   cfg.Owner,
		stats:   cfg.Stats,
		element: cfg.Element,
		table:   cfg.Table,
		roller:  cfg.Roller,
		sink:    event.OrDiscard(cfg.Sink),
		logger:  cfg.Logger,
	}
}

func (r *Resolver) Element() element.Element     { return r.element }
func (r *Resolver) SetElement(e element.Element) { r.element = e }

// Attack runs the full pipeline against target and applies the result.
// Every call emits one AttackResolved event, misses included.
func (r *Resolver) Attack(target Target, multiplier float64, dt DamageType, source string) DamageReport {
	rep := DamageReport{
		Attacker:            r.owner,
		Defender:            target.Handle,
		Type:                dt,
		AttackerElement:     r.element,
		DefenderElement:     target.Element,
		ElementalMultiplier: 1,
		Source:              source,
	}

	// ① Hit roll. A miss ends the pipeline without a dodge roll.
	if r.roller.Roll() >= r.stats.Effective(stats.HitRate) {
		rep.Dodged = true
		return r.finish(rep)
	}

	// ② Dodge roll.
	if r.roller.Roll() < target.Stats.Effective(stats.DodgeRate) {
		rep.Dodged = true
		return r.finish(rep)
	}

	// ③ Base damage.
	damage := r.baseDamage(dt, multiplier)
	rep.BaseDamage = damage

	// ④ Crit roll. Defender toughness is not consulted here.
	if r.roller.Roll() < r.stats.Effective(stats.CritRate) {
		rep.Critical = true
		damage *= r.stats.Effective(stats.CritDamage) / 100
	}

	// ⑤ Affinity, magical only.
	if dt == Magical {
		rep.ElementalMultiplier = r.table.Multiplier(r.element, target.Element)
		damage *= rep.ElementalMultiplier
	}

	// ⑥ Defense.
	if dt != True {
		damage = r.mitigate(damage, target.Stats)
	}

	// ⑦ Apply.
	rep.FinalDamage = damage
	rep.Applied = target.Pool.TakeDamage(damage)
	return r.finish(rep)
}

func (r *Resolver) finish(rep DamageReport) DamageReport {
	r.sink.Emit(rep.Event())
	return rep
}

// ExpectedDamage is Attack in expectation form with no rolls and no mutation.
// Crit chance is reduced by defender toughness, dodge is folded in as a
// factor, hit rate and affinity are ignored.
func (r *Resolver) ExpectedDamage(target StatReader, multiplier float64, dt DamageType) float64 {
	damage := r.baseDamage(dt, multiplier)

	critChance := max(0, r.stats.Effective(stats.CritRate)-target.Effective(stats.Toughness)) / 100
	critDamage := r.stats.Effective(stats.CritDamage) / 100
	damage *= 1 + critChance*(critDamage-1)

	damage *= 1 - target.Effective(stats.DodgeRate)/100

	if dt != True {
		damage = r.mitigate(damage, target)
	}
	return damage
}

// DealRawDamage applies amount directly with no rolls or mitigation.
func (r *Resolver) DealRawDamage(target Target, amount float64, dt DamageType, source string) DamageReport {
	rep := DamageReport{
		Attacker:            r.owner,
		Defender:            target.Handle,
		Type:                dt,
		BaseDamage:          amount,
		FinalDamage:         amount,
		AttackerElement:     r.element,
		DefenderElement:     target.Element,
		ElementalMultiplier: 1,
		Source:              source,
	}
	rep.Applied = target.Pool.TakeDamage(amount)
	return r.finish(rep)
}

// Heal restores HP on target and returns the amount healed.
func (r *Resolver) Heal(target Damageable, amount float64) float64 {
	return target.Heal(amount)
}

func (r *Resolver) baseDamage(dt DamageType, multiplier float64) float64 {
	switch dt {
	case Magical:
		return r.stats.Effective(stats.Magic) * multiplier
	case Physical, True:
		return r.stats.Effective(stats.ATK) * multiplier
	}
	r.logger.Warn("unknown damage type, using atk", zap.Stringer("type", dt))
	return r.stats.Effective(stats.ATK) * multiplier
}

// mitigate applies damage × 100 / (100 + DEF × (1 − pen/100)).
func (r *Resolver) mitigate(damage float64, target StatReader) float64 {
	def := target.Effective(stats.DEF) * (1 - r.stats.Effective(stats.Penetration)/100)
	def = max(0, def)
	return damage * 100 / (100 + def)
}
