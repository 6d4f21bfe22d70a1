package battle

import (
	"fmt"

	"github.com/kasuganosora/combatcore/game/element"
	"github.com/kasuganosora/combatcore/game/event"
)

// DamageType selects which attacker stat drives an attack and whether
// defense and affinity apply.
type DamageType int

const (
	Physical DamageType = iota
	Magical
	True
)

func (d DamageType) String() string {
	switch d {
	case Physical:
		return "physical"
	case Magical:
		return "magical"
	case True:
		return "true"
	}
	return fmt.Sprintf("damage_type(%d)", int(d))
}

// ParseDamageType resolves "physical", "magical" or "true".
func ParseDamageType(s string) (DamageType, error) {
	switch s {
	case "physical", "":
		return Physical, nil
	case "magical":
		return Magical, nil
	case "true":
		return True, nil
	}
	return 0, fmt.Errorf("battle: unknown damage type %q", s)
}

// DamageReport describes the outcome of one attack or raw damage call.
type DamageReport struct {
	Attacker event.Handle `json:"attacker"`
	Defender event.Handle `json:"defender"`

	Type        DamageType `json:"-"`
	BaseDamage  float64    `json:"base_damage"` // before crit, affinity and defense
	FinalDamage float64    `json:"final_damage"`
	Applied     float64    `json:"applied"` // HP actually removed
	Critical    bool       `json:"critical"`
	Dodged      bool       `json:"dodged"`
	Blocked     bool       `json:"blocked"`

	AttackerElement     element.Element `json:"-"`
	DefenderElement     element.Element `json:"-"`
	ElementalMultiplier float64         `json:"elemental_multiplier"`
	Source              string          `json:"source"`
}

// Event converts the report into the event emitted for it.
func (r DamageReport) Event() event.AttackResolved {
	return event.AttackResolved{
		Attacker:            r.Attacker,
		Defender:            r.Defender,
		DamageType:          r.Type.String(),
		BaseDamage:          r.BaseDamage,
		FinalDamage:         r.FinalDamage,
		Applied:             r.Applied,
		Critical:            r.Critical,
		Dodged:              r.Dodged,
		ElementalMultiplier: r.ElementalMultiplier,
		Source:              r.Source,
	}
}

// DisplayText renders the report for a combat log line. table may be nil.
func (r DamageReport) DisplayText(table *element.AffinityTable) string {
	if r.Dodged {
		return "dodged!"
	}
	text := fmt.Sprintf("%.0f", r.FinalDamage)
	if r.Blocked {
		text += " (blocked)"
	}
	if r.Critical {
		text += " critical!"
	}
	out := fmt.Sprintf("%s damage: %s", r.Type, text)
	if r.ElementalMultiplier != 1 && r.ElementalMultiplier != 0 {
		label := element.DescribeMultiplier(r.ElementalMultiplier)
		if table != nil {
			label = table.Describe(r.AttackerElement, r.DefenderElement)
		}
		out += fmt.Sprintf(" [%s]", label)
	}
	return out
}
