package stats

import (
	"fmt"
	"strings"
)

// Stat identifies one aggregated combat attribute.
type Stat int

const (
	HP Stat = iota
	MP
	ATK
	Magic
	DEF
	Speed
	SP
	CritRate
	CritDamage
	DodgeRate
	Toughness
	Penetration
	SkillHaste
	HitRate

	numStats = 14
)

var statNames = [numStats]string{
	"hp", "mp", "atk", "magic", "def", "speed", "sp",
	"crit_rate", "crit_damage", "dodge_rate", "toughness", "penetration", "skill_haste", "hit_rate",
}

func (s Stat) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stat(%d)", int(s))
	}
	return statNames[s]
}

// Valid reports whether s is a declared stat.
func (s Stat) Valid() bool { return s >= 0 && s < numStats }

// IsPrimary reports whether s is one of the resource or core attack/defense stats.
func (s Stat) IsPrimary() bool { return s <= SP }

// ParseStat resolves a stat name such as "crit_rate" or "CritRate".
func ParseStat(name string) (Stat, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	for i, sn := range statNames {
		if n == sn || n == strings.ReplaceAll(sn, "_", "") {
			return Stat(i), nil
		}
	}
	return 0, fmt.Errorf("stats: unknown stat %q", name)
}

// All returns every stat in declaration order.
func All() []Stat {
	out := make([]Stat, numStats)
	for i := range out {
		out[i] = Stat(i)
	}
	return out
}

// bounds is the clamp range applied after aggregation. max < 0 means unbounded.
type bounds struct{ min, max float64 }

func clampBounds(s Stat) bounds {
	switch s {
	case CritRate, DodgeRate, HitRate, Toughness, Penetration:
		return bounds{0, 100}
	case CritDamage:
		return bounds{100, 300}
	case SkillHaste:
		return bounds{0, 40}
	default:
		return bounds{0, -1}
	}
}

func clampStat(s Stat, v float64) float64 {
	b := clampBounds(s)
	if v < b.min {
		return b.min
	}
	if b.max >= 0 && v > b.max {
		return b.max
	}
	return v
}

// Cap returns the upper clamp of s and whether one exists.
func Cap(s Stat) (float64, bool) {
	b := clampBounds(s)
	return b.max, b.max >= 0
}

// Floor returns the lower clamp of s.
func Floor(s Stat) float64 { return clampBounds(s).min }

// DefaultBase holds the base values a fresh aggregator starts with.
var DefaultBase = map[Stat]float64{
	HP:          100,
	MP:          50,
	ATK:         10,
	Magic:       10,
	DEF:         8,
	Speed:       5,
	SP:          100,
	CritRate:    5,
	CritDamage:  150,
	DodgeRate:   5,
	Toughness:   0,
	Penetration: 0,
	SkillHaste:  0,
	HitRate:     100,
}

func (s Stat) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stat) UnmarshalText(b []byte) error {
	v, err := ParseStat(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
