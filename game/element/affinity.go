package element

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Element is a combatant's elemental attribute.
type Element int

const (
	Fire Element = iota
	Water
	Earth
	Wind
	None
	Light
	Dark
	Divine

	numElements = 8
)

var elementNames = [numElements]string{"fire", "water", "earth", "wind", "none", "light", "dark", "divine"}

func (e Element) String() string {
	if e < 0 || e >= numElements {
		return fmt.Sprintf("element(%d)", int(e))
	}
	return elementNames[e]
}

// Valid reports whether e is one of the declared elements.
func (e Element) Valid() bool { return e >= 0 && e < numElements }

// IsBasic reports whether e is one of the four player-selectable elements.
func (e Element) IsBasic() bool { return e >= Fire && e <= Wind }

// ParseElement resolves a case-insensitive element name.
func ParseElement(s string) (Element, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range elementNames {
		if n == name {
			return Element(i), nil
		}
	}
	return None, fmt.Errorf("element: unknown element %q", s)
}

// All returns every declared element in table order.
func All() []Element {
	out := make([]Element, numElements)
	for i := range out {
		out[i] = Element(i)
	}
	return out
}

// Matrix holds percentage multipliers indexed [attacker][defender]; 100 is neutral.
// A zero entry means the pair is not configured.
type Matrix [numElements][numElements]float64

// DefaultMatrix is the shipped eight-element affinity chart.
var DefaultMatrix = Matrix{
	//          fire water earth wind none light dark divine
	Fire:   {100, 80, 100, 160, 125, 105, 95, 75},
	Water:  {140, 100, 75, 100, 125, 105, 95, 75},
	Earth:  {100, 130, 100, 85, 125, 105, 95, 75},
	Wind:   {90, 100, 145, 100, 125, 105, 95, 75},
	None:   {80, 80, 80, 80, 100, 80, 80, 80},
	Light:  {95, 95, 95, 95, 125, 100, 200, 100},
	Dark:   {120, 120, 120, 120, 125, 50, 100, 75},
	Divine: {150, 150, 150, 150, 150, 100, 150, 100},
}

// AffinityTable is an immutable attacker/defender damage multiplier lookup.
// Build it once at startup and share the pointer.
type AffinityTable struct {
	m      Matrix
	logger *zap.Logger
}

// NewAffinityTable returns a table over DefaultMatrix.
func NewAffinityTable(logger *zap.Logger) *AffinityTable {
	return NewAffinityTableFrom(DefaultMatrix, logger)
}

// NewAffinityTableFrom copies m into a new table.
func NewAffinityTableFrom(m Matrix, logger *zap.Logger) *AffinityTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AffinityTable{m: m, logger: logger}
}

// Multiplier returns the damage scalar for attacker hitting defender (1.0 = neutral).
// Pairs outside the table fall back to 1.0 with a warning.
func (t *AffinityTable) Multiplier(attacker, defender Element) float64 {
	if attacker.Valid() && defender.Valid() {
		if pct := t.m[attacker][defender]; pct > 0 {
			return pct / 100
		}
	}
	t.logger.Warn("affinity pair missing, using neutral multiplier",
		zap.Stringer("attacker", attacker),
		zap.Stringer("defender", defender))
	return 1.0
}

// Describe buckets the multiplier into a display label.
func (t *AffinityTable) Describe(attacker, defender Element) string {
	return DescribeMultiplier(t.Multiplier(attacker, defender))
}

// DescribeMultiplier buckets a raw multiplier into a display label.
func DescribeMultiplier(m float64) string {
	switch {
	case m > 1.3:
		return "superb"
	case m > 1.1:
		return "great"
	case m > 0.9:
		return "normal"
	case m > 0.7:
		return "poor"
	default:
		return "weak"
	}
}

func (e Element) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Element) UnmarshalText(b []byte) error {
	v, err := ParseElement(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
