package battle

import (
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/stats"
)

// ControlSnapshot is one active control effect in a snapshot.
type ControlSnapshot struct {
	Type      string  `json:"type"`
	Remaining float64 `json:"remaining_s"`
	Intensity float64 `json:"intensity"`
	Source    string  `json:"source,omitempty"`
}

// ModifierSnapshot is one modifier in a snapshot.
type ModifierSnapshot struct {
	ID     string  `json:"id"`
	Stat   string  `json:"stat"`
	Kind   string  `json:"kind"`
	Value  float64 `json:"value"`
	Source string  `json:"source"`
	Text   string  `json:"text"`
}

// Snapshot is a read-only view of a combatant for inspection.
type Snapshot struct {
	Handle  event.Handle `json:"handle"`
	Name    string       `json:"name"`
	Element string       `json:"element"`

	HP    float64 `json:"hp"`
	MaxHP float64 `json:"max_hp"`
	MP    float64 `json:"mp"`
	MaxMP float64 `json:"max_mp"`
	Dead  bool    `json:"dead"`

	Stats     map[string]float64 `json:"stats"`
	Modifiers []ModifierSnapshot `json:"modifiers"`

	SuperArmor  bool              `json:"super_armor"`
	Armor       float64           `json:"armor"`
	MaxArmor    float64           `json:"max_armor"`
	ArmorBroken bool              `json:"armor_broken"`
	ArmorStatus string            `json:"armor_status"`
	Controls    []ControlSnapshot `json:"controls"`

	Reviving bool    `json:"reviving"`
	ReviveIn float64 `json:"revive_in_s,omitempty"`
}

// Snapshot returns a view of target.
func (a *Arena) Snapshot(target event.Handle) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.get(target)
	if err != nil {
		return Snapshot{}, err
	}
	return c.snapshot(), nil
}

// Snapshots returns a view of every combatant in handle order.
func (a *Arena) Snapshots() []Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Snapshot, 0, len(a.combatants))
	for _, h := range a.handles() {
		out = append(out, a.combatants[h].snapshot())
	}
	return out
}

func (c *combatant) snapshot() Snapshot {
	s := Snapshot{
		Handle:      c.handle,
		Name:        c.name,
		Element:     c.resolver.Element().String(),
		HP:          c.pool.HP(),
		MaxHP:       c.pool.MaxHP(),
		MP:          c.pool.MP(),
		MaxMP:       c.pool.MaxMP(),
		Dead:        c.pool.IsDead(),
		Stats:       make(map[string]float64, len(stats.All())),
		SuperArmor:  c.stagger.HasSuperArmor(),
		Armor:       c.stagger.Armor(),
		MaxArmor:    c.stagger.MaxArmor(),
		ArmorBroken: c.stagger.IsBroken(),
		ArmorStatus: c.stagger.StatusText(),
	}
	for _, st := range stats.All() {
		s.Stats[st.String()] = c.stats.Effective(st)
	}
	for _, m := range c.stats.AllModifiers() {
		s.Modifiers = append(s.Modifiers, ModifierSnapshot{
			ID:     m.ID,
			Stat:   m.Stat.String(),
			Kind:   m.Kind.String(),
			Value:  m.Value,
			Source: m.Source,
			Text:   m.DisplayText(),
		})
	}
	for _, e := range c.stagger.ActiveEffects() {
		s.Controls = append(s.Controls, ControlSnapshot{
			Type:      e.Type.String(),
			Remaining: e.Remaining.Seconds(),
			Intensity: e.Intensity,
			Source:    e.Source,
		})
	}
	if c.revive != nil {
		s.Reviving = true
		s.ReviveIn = c.revive.remaining.Seconds()
	}
	return s
}
