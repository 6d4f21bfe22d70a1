package stagger

import (
	"fmt"
	"strings"
	"time"
)

// CCType is a crowd-control category. At most one effect per type is active.
type CCType int

const (
	Stun CCType = iota
	Freeze
	Slow
	Silence
	Root
	Knockback
	Knockdown
)

var ccNames = []string{"stun", "freeze", "slow", "silence", "root", "knockback", "knockdown"}

func (c CCType) String() string {
	if c < 0 || int(c) >= len(ccNames) {
		return fmt.Sprintf("cc(%d)", int(c))
	}
	return ccNames[c]
}

// ParseCCType resolves a control name such as "stun".
func ParseCCType(s string) (CCType, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	for i, name := range ccNames {
		if name == n {
			return CCType(i), nil
		}
	}
	return 0, fmt.Errorf("stagger: unknown crowd control %q", s)
}

// PreventsMovement reports whether c locks the target in place.
func (c CCType) PreventsMovement() bool {
	switch c {
	case Stun, Freeze, Root, Knockback, Knockdown:
		return true
	}
	return false
}

// PreventsAction reports whether c stops attacks and casts.
func (c CCType) PreventsAction() bool {
	switch c {
	case Stun, Freeze, Knockdown:
		return true
	}
	return false
}

// ControlEffect is one active crowd-control instance.
type ControlEffect struct {
	Type      CCType
	Duration  time.Duration
	Intensity float64 // e.g. slow fraction
	Remaining time.Duration
	Source    string
}

// NewControlEffect returns an effect with its full duration remaining.
// Intensity defaults to 1 when zero.
func NewControlEffect(t CCType, d time.Duration, intensity float64, source string) ControlEffect {
	if intensity == 0 {
		intensity = 1
	}
	return ControlEffect{Type: t, Duration: d, Intensity: intensity, Remaining: d, Source: source}
}

// Tick advances the effect and reports whether it is still active.
func (e *ControlEffect) Tick(dt time.Duration) bool {
	e.Remaining -= dt
	return e.Active()
}

func (e *ControlEffect) Refresh() { e.Remaining = e.Duration }

func (e *ControlEffect) Active() bool { return e.Remaining > 0 }

func (e ControlEffect) DisplayText() string {
	return fmt.Sprintf("%s (%.1fs)", e.Type, e.Remaining.Seconds())
}
