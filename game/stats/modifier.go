package stats

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind selects the stacking tier of a modifier.
type Kind int

const (
	Flat Kind = iota
	Percentage
	Final
)

func (k Kind) String() string {
	switch k {
	case Flat:
		return "flat"
	case Percentage:
		return "percentage"
	case Final:
		return "final"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves "flat", "percentage" or "final".
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{Flat, Percentage, Final} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("stats: unknown modifier kind %q", s)
}

// Modifier is an immutable adjustment to one stat.
// Flat values are added, Percentage and Final values are percents.
type Modifier struct {
	Stat   Stat    `json:"stat"`
	Kind   Kind    `json:"kind"`
	Value  float64 `json:"value"`
	Source string  `json:"source"`
	ID     string  `json:"id"`
}

// NewModifier builds a modifier with a fresh unique ID.
func NewModifier(stat Stat, kind Kind, value float64, source string) Modifier {
	return Modifier{Stat: stat, Kind: kind, Value: value, Source: source, ID: uuid.New().String()}
}

// DisplayText renders the modifier for tooltips, e.g. "+20 atk" or "-15% def".
func (m Modifier) DisplayText() string {
	sign := "+"
	if m.Value < 0 {
		sign = ""
	}
	switch m.Kind {
	case Flat:
		return fmt.Sprintf("%s%g %s", sign, m.Value, m.Stat)
	case Final:
		return fmt.Sprintf("%s%g%% %s (final)", sign, m.Value, m.Stat)
	default:
		return fmt.Sprintf("%s%g%% %s", sign, m.Value, m.Stat)
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
