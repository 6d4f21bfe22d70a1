package stats

import (
	"sort"
	"time"
)

// BaseValue is one (stat, base) pair as exposed for persistence.
type BaseValue struct {
	Stat  Stat    `json:"stat"`
	Value float64 `json:"value"`
}

// Aggregator owns base values and modifiers for one combatant and caches the
// effective values. Not safe for concurrent use.
type Aggregator struct {
	base      [numStats]float64
	modifiers [numStats][]Modifier
	timed     map[string]time.Duration // modifier ID -> remaining

	effective [numStats]float64
	dirty     bool
}

// New creates an aggregator seeded with DefaultBase, then overrides.
func New(overrides map[Stat]float64) *Aggregator {
	a := &Aggregator{timed: make(map[string]time.Duration), dirty: true}
	for s, v := range DefaultBase {
		a.base[s] = v
	}
	for s, v := range overrides {
		if s.Valid() {
			a.base[s] = v
		}
	}
	return a
}

func (a *Aggregator) Base(s Stat) float64 {
	if !s.Valid() {
		return 0
	}
	return a.base[s]
}

func (a *Aggregator) SetBase(s Stat, v float64) {
	if !s.Valid() {
		return
	}
	a.base[s] = v
	a.dirty = true
}

// Effective returns the aggregated, clamped value of s.
func (a *Aggregator) Effective(s Stat) float64 {
	if !s.Valid() {
		return 0
	}
	if a.dirty {
		a.recalculate()
	}
	return a.effective[s]
}

// recalculate rebuilds the whole cache. Order is Flat, then Percentage, then
// Final, then the clamp.
func (a *Aggregator) recalculate() {
	for i := range a.base {
		var flat, pct, fin float64
		for _, m := range a.modifiers[i] {
			switch m.Kind {
			case Flat:
				flat += m.Value
			case Percentage:
				pct += m.Value
			case Final:
				fin += m.Value
			}
		}
		v := a.base[i] + flat
		v *= 1 + pct/100
		v *= 1 + fin/100
		a.effective[i] = clampStat(Stat(i), v)
	}
	a.dirty = false
}

// AddModifier attaches m. Modifiers for undeclared stats are ignored.
func (a *Aggregator) AddModifier(m Modifier) {
	if !m.Stat.Valid() {
		return
	}
	a.modifiers[m.Stat] = append(a.modifiers[m.Stat], m)
	a.dirty = true
}

// AddTimedModifier attaches m and removes it after d of Update time.
func (a *Aggregator) AddTimedModifier(m Modifier, d time.Duration) {
	if !m.Stat.Valid() {
		return
	}
	a.AddModifier(m)
	if d > 0 && m.ID != "" {
		a.timed[m.ID] = d
	}
}

// RemoveModifier removes the modifier with the given ID.
func (a *Aggregator) RemoveModifier(id string) bool {
	for s := range a.modifiers {
		for i, m := range a.modifiers[s] {
			if m.ID == id {
				a.modifiers[s] = append(a.modifiers[s][:i], a.modifiers[s][i+1:]...)
				delete(a.timed, id)
				a.dirty = true
				return true
			}
		}
	}
	return false
}

// RemoveModifiersBySource removes every modifier tagged with source and
// returns how many were dropped.
func (a *Aggregator) RemoveModifiersBySource(source string) int {
	n := 0
	for s := range a.modifiers {
		kept := a.modifiers[s][:0]
		for _, m := range a.modifiers[s] {
			if m.Source == source {
				delete(a.timed, m.ID)
				n++
				continue
			}
			kept = append(kept, m)
		}
		a.modifiers[s] = kept
	}
	if n > 0 {
		a.dirty = true
	}
	return n
}

func (a *Aggregator) ClearModifiers() {
	for s := range a.modifiers {
		a.modifiers[s] = nil
	}
	clear(a.timed)
	a.dirty = true
}

// Modifiers returns a copy of the modifiers on s.
func (a *Aggregator) Modifiers(s Stat) []Modifier {
	if !s.Valid() {
		return nil
	}
	return append([]Modifier(nil), a.modifiers[s]...)
}

// AllModifiers returns every modifier, ordered by stat then insertion.
func (a *Aggregator) AllModifiers() []Modifier {
	var out []Modifier
	for s := range a.modifiers {
		out = append(out, a.modifiers[s]...)
	}
	return out
}

// PermanentModifiers returns AllModifiers minus the timed ones.
func (a *Aggregator) PermanentModifiers() []Modifier {
	var out []Modifier
	for s := range a.modifiers {
		for _, m := range a.modifiers[s] {
			if _, timed := a.timed[m.ID]; !timed {
				out = append(out, m)
			}
		}
	}
	return out
}

// Remaining reports the time left on a timed modifier.
func (a *Aggregator) Remaining(id string) (time.Duration, bool) {
	d, ok := a.timed[id]
	return d, ok
}

// Update advances timed modifiers by dt and returns the ones that expired.
func (a *Aggregator) Update(dt time.Duration) []Modifier {
	if len(a.timed) == 0 || dt <= 0 {
		return nil
	}
	var expired []string
	for id, left := range a.timed {
		left -= dt
		if left <= 0 {
			expired = append(expired, id)
			continue
		}
		a.timed[id] = left
	}
	if len(expired) == 0 {
		return nil
	}
	sort.Strings(expired)

	out := make([]Modifier, 0, len(expired))
	for _, id := range expired {
		if m, ok := a.find(id); ok {
			out = append(out, m)
		}
		a.RemoveModifier(id)
	}
	return out
}

func (a *Aggregator) find(id string) (Modifier, bool) {
	for s := range a.modifiers {
		for _, m := range a.modifiers[s] {
			if m.ID == id {
				return m, true
			}
		}
	}
	return Modifier{}, false
}

// BaseValues enumerates every (stat, base) pair.
func (a *Aggregator) BaseValues() []BaseValue {
	out := make([]BaseValue, numStats)
	for i := range out {
		out[i] = BaseValue{Stat: Stat(i), Value: a.base[i]}
	}
	return out
}

// Restore replaces all bases and modifiers. Stats missing from bases keep
// their current value. Timed state is not restored.
func (a *Aggregator) Restore(bases []BaseValue, mods []Modifier) {
	for _, b := range bases {
		if b.Stat.Valid() {
			a.base[b.Stat] = b.Value
		}
	}
	a.ClearModifiers()
	for _, m := range mods {
		a.AddModifier(m)
	}
}

// Clone returns an independent copy including timed modifiers.
func (a *Aggregator) Clone() *Aggregator {
	c := &Aggregator{base: a.base, timed: make(map[string]time.Duration, len(a.timed)), dirty: true}
	for s := range a.modifiers {
		c.modifiers[s] = append([]Modifier(nil), a.modifiers[s]...)
	}
	for id, d := range a.timed {
		c.timed[id] = d
	}
	return c
}
