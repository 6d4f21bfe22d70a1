package battle

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/combatcore/game/dice"
	"github.com/kasuganosora/combatcore/game/element"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/health"
	"github.com/kasuganosora/combatcore/game/stagger"
	"github.com/kasuganosora/combatcore/game/stats"
)

var (
	ErrUnknownCombatant = errors.New("battle: unknown combatant")
	ErrCombatantDead    = errors.New("battle: combatant is dead")
	ErrCombatantAlive   = errors.New("battle: combatant is alive")
)

// ArenaConfig configures an Arena.
type ArenaConfig struct {
	Table  *element.AffinityTable // nil = default chart
	Roller dice.Roller            // shared by every combatant; nil = clock seeded
	Sink   event.Sink
	Logger *zap.Logger
}

// SpawnConfig describes a new combatant.
type SpawnConfig struct {
	Name      string
	Element   element.Element
	Base      map[stats.Stat]float64 // missing stats use stats.DefaultBase
	Modifiers []stats.Modifier
	// SuperArmor enables stagger resistance. Owner, Sink, Roller and Logger
	// are filled in by the arena.
	SuperArmor *stagger.Config
}

type combatant struct {
	handle   event.Handle
	name     string
	stats    *stats.Aggregator
	pool     *health.Pool
	stagger  *stagger.Resistance
	resolver *Resolver

	revive *reviveTimer
}

type reviveTimer struct {
	remaining  time.Duration
	hpFraction float64
	mpFraction float64
}

func (c *combatant) target() Target {
	return Target{Handle: c.handle, Stats: c.stats, Pool: c.pool, Element: c.resolver.Element()}
}

// Arena owns every combatant and hands out handles to them. All methods are
// safe for concurrent use; the components behind them are not.
type Arena struct {
	mu         sync.Mutex
	next       event.Handle
	combatants map[event.Handle]*combatant

	table  *element.AffinityTable
	roller dice.Roller
	sink   event.Sink
	logger *zap.Logger
	env    *Resolver
}

// NewArena creates an empty arena.
func NewArena(cfg ArenaConfig) *Arena {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Table == nil {
		cfg.Table = element.NewAffinityTable(cfg.Logger)
	}
	if cfg.Roller == nil {
		cfg.Roller = dice.NewRoller(nil)
	}
	sink := event.OrDiscard(cfg.Sink)
	return &Arena{
		combatants: make(map[event.Handle]*combatant),
		table:      cfg.Table,
		roller:     cfg.Roller,
		sink:       sink,
		logger:     cfg.Logger,
		env: NewResolver(ResolverConfig{
			Table:  cfg.Table,
			Roller: cfg.Roller,
			Sink:   sink,
			Logger: cfg.Logger,
		}),
	}
}

// Table returns the affinity table shared by the arena.
func (a *Arena) Table() *element.AffinityTable { return a.table }

// Spawn creates a combatant at full HP/MP and returns its handle.
func (a *Arena) Spawn(cfg SpawnConfig) event.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next++
	h := a.next

	agg := stats.New(cfg.Base)
	for _, m := range cfg.Modifiers {
		agg.AddModifier(m)
	}

	sc := stagger.Config{Disabled: true}
	if cfg.SuperArmor != nil {
		sc = *cfg.SuperArmor
	}
	sc.Owner, sc.Sink, sc.Roller, sc.Logger = h, a.sink, a.roller, a.logger

	c := &combatant{
		handle:  h,
		name:    cfg.Name,
		stats:   agg,
		pool:    health.NewPool(agg, h, a.sink),
		stagger: stagger.New(sc),
		resolver: NewResolver(ResolverConfig{
			Owner:   h,
			Stats:   agg,
			Element: cfg.Element,
			Table:   a.table,
			Roller:  a.roller,
			Sink:    a.sink,
			Logger:  a.logger,
		}),
	}
	a.combatants[h] = c
	a.sink.Emit(event.Spawned{Subject: h, Name: cfg.Name})
	a.logger.Debug("combatant spawned", zap.Uint32("handle", uint32(h)), zap.String("name", cfg.Name))
	return h
}

// Despawn removes a combatant. Later calls with its handle fail with
// ErrUnknownCombatant.
func (a *Arena) Despawn(h event.Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.combatants[h]; !ok {
		return ErrUnknownCombatant
	}
	delete(a.combatants, h)
	a.sink.Emit(event.Despawned{Subject: h})
	return nil
}

func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.combatants)
}

// Handles returns every live handle in ascending order.
func (a *Arena) Handles() []event.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handles()
}

func (a *Arena) handles() []event.Handle {
	out := make([]event.Handle, 0, len(a.combatants))
	for h := range a.combatants {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a *Arena) get(h event.Handle) (*combatant, error) {
	c, ok := a.combatants[h]
	if !ok {
		return nil, ErrUnknownCombatant
	}
	return c, nil
}

// Attack resolves one attack from attacker on defender.
func (a *Arena) Attack(attacker, defender event.Handle, multiplier float64, dt DamageType, source string) (DamageReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	atk, err := a.get(attacker)
	if err != nil {
		return DamageReport{}, err
	}
	def, err := a.get(defender)
	if err != nil {
		return DamageReport{}, err
	}
	if atk.pool.IsDead() {
		return DamageReport{}, ErrCombatantDead
	}
	return atk.resolver.Attack(def.target(), multiplier, dt, source), nil
}

// ExpectedDamage estimates the average damage of an attack without rolling.
func (a *Arena) ExpectedDamage(attacker, defender event.Handle, multiplier float64, dt DamageType) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	atk, err := a.get(attacker)
	if err != nil {
		return 0, err
	}
	def, err := a.get(defender)
	if err != nil {
		return 0, err
	}
	return atk.resolver.ExpectedDamage(def.stats, multiplier, dt), nil
}

// DealRawDamage applies fixed damage from the environment to target.
func (a *Arena) DealRawDamage(target event.Handle, amount float64, dt DamageType, source string) (DamageReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return DamageReport{}, err
	}
	return a.env.DealRawDamage(c.target(), amount, dt, source), nil
}

// Heal restores HP on target and returns the amount healed.
func (a *Arena) Heal(target event.Handle, amount float64) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return 0, err
	}
	return a.env.Heal(c.pool, amount), nil
}

// CrowdControlResult reports what a control attempt did.
type CrowdControlResult struct {
	Applied     bool `json:"applied"`
	Absorbed    bool `json:"absorbed"` // super armor took the hit
	ArmorBroken bool `json:"armor_broken"`
}

// ApplyCrowdControl is the skill-cast control gate: a target with super armor
// takes armorDamage instead, otherwise the toughness-gated roll decides.
func (a *Arena) ApplyCrowdControl(target event.Handle, effect stagger.ControlEffect, armorDamage, skillHitRate float64) (CrowdControlResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return CrowdControlResult{}, err
	}
	if c.stagger.HasSuperArmor() {
		resisted := c.stagger.TakeCrowdControlDamage(armorDamage)
		return CrowdControlResult{Absorbed: true, ArmorBroken: !resisted}, nil
	}
	applied := c.stagger.TryApplyCrowdControl(effect, c.stats.Effective(stats.Toughness), skillHitRate)
	return CrowdControlResult{Applied: applied}, nil
}

// RemoveCrowdControl clears one control type from target.
func (a *Arena) RemoveCrowdControl(target event.Handle, t stagger.CCType) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return false, err
	}
	return c.stagger.RemoveCrowdControl(t), nil
}

// AddModifier attaches m to target. A positive d makes it expire after d of
// Update time.
func (a *Arena) AddModifier(target event.Handle, m stats.Modifier, d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return err
	}
	if d > 0 {
		c.stats.AddTimedModifier(m, d)
	} else {
		c.stats.AddModifier(m)
	}
	c.pool.ClampToMax()
	return nil
}

// RemoveModifiersBySource drops every modifier on target tagged source.
func (a *Arena) RemoveModifiersBySource(target event.Handle, source string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return 0, err
	}
	n := c.stats.RemoveModifiersBySource(source)
	c.pool.ClampToMax()
	return n, nil
}

// StartRevive schedules a dead combatant to revive with the given fractions
// of its maximums once delay of Update time has passed. A zero delay revives
// immediately.
func (a *Arena) StartRevive(target event.Handle, delay time.Duration, hpFraction, mpFraction float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return err
	}
	if !c.pool.IsDead() {
		return ErrCombatantAlive
	}
	if delay <= 0 {
		c.pool.Revive(hpFraction, mpFraction)
		c.revive = nil
		return nil
	}
	c.revive = &reviveTimer{remaining: delay, hpFraction: hpFraction, mpFraction: mpFraction}
	return nil
}

// Update advances every combatant by dt: timed modifiers first, then revive
// timers, then stagger state. Call it once per frame before any attack.
func (a *Arena) Update(dt time.Duration) {
	if dt <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, h := range a.handles() {
		c := a.combatants[h]

		if expired := c.stats.Update(dt); len(expired) > 0 {
			for _, m := range expired {
				a.sink.Emit(event.ModifierExpired{Subject: h, ModifierID: m.ID, Stat: m.Stat.String(), Source: m.Source})
			}
			c.pool.ClampToMax()
		}

		if c.revive != nil {
			c.revive.remaining -= dt
			if c.revive.remaining <= 0 {
				c.pool.Revive(c.revive.hpFraction, c.revive.mpFraction)
				c.revive = nil
			}
		}

		c.stagger.Update(dt)
	}
}

// State is the persistable part of a combatant. Timed modifiers are left
// out; they belong to the running fight.
type State struct {
	Name      string            `json:"name"`
	Element   element.Element   `json:"element"`
	Bases     []stats.BaseValue `json:"bases"`
	Modifiers []stats.Modifier  `json:"modifiers"`
	HP        float64           `json:"hp"`
	MP        float64           `json:"mp"`
	Dead      bool              `json:"dead"`
}

// State captures target for the save layer.
func (a *Arena) State(target event.Handle) (State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return State{}, err
	}
	return State{
		Name:      c.name,
		Element:   c.resolver.Element(),
		Bases:     c.stats.BaseValues(),
		Modifiers: c.stats.PermanentModifiers(),
		HP:        c.pool.HP(),
		MP:        c.pool.MP(),
		Dead:      c.pool.IsDead(),
	}, nil
}

// Restore overwrites target with a previously captured State.
func (a *Arena) Restore(target event.Handle, st State) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return err
	}
	if st.Name != "" {
		c.name = st.Name
	}
	c.resolver.SetElement(st.Element)
	c.stats.Restore(st.Bases, st.Modifiers)
	c.revive = nil
	c.pool.Load(st.HP, st.MP, st.Dead)
	return nil
}
