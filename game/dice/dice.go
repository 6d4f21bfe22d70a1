package dice

import (
	"math/rand"
	"time"
)

// Roller draws uniform percentile values in [0,100).
type Roller interface {
	Roll() float64
}

type randRoller struct {
	rng *rand.Rand
}

func (r *randRoller) Roll() float64 { return r.rng.Float64() * 100 }

// NewRoller wraps rng. A nil rng is seeded from the clock.
func NewRoller(rng *rand.Rand) Roller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &randRoller{rng: rng}
}

// NewSeededRoller returns a reproducible roller.
func NewSeededRoller(seed int64) Roller {
	return &randRoller{rng: rand.New(rand.NewSource(seed))}
}

// Sequence replays a fixed list of rolls, wrapping around at the end.
type Sequence struct {
	values []float64
	pos    int
}

// Fixed returns a Sequence over values. With no values every roll is 0.
func Fixed(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Roll() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

// Calls returns how many rolls have been drawn.
func (s *Sequence) Calls() int { return s.pos }
