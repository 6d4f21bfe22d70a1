package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededRoller_Range(t *testing.T) {
	r := NewSeededRoller(42)
	for i := 0; i < 1000; i++ {
		v := r.Roll()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 100.0)
	}
}

func TestSeededRoller_Reproducible(t *testing.T) {
	a, b := NewSeededRoller(7), NewSeededRoller(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Roll(), b.Roll())
	}
}

func TestFixed_Wraps(t *testing.T) {
	s := Fixed(10, 20)
	assert.Equal(t, 10.0, s.Roll())
	assert.Equal(t, 20.0, s.Roll())
	assert.Equal(t, 10.0, s.Roll())
	assert.Equal(t, 3, s.Calls())
}

func TestFixed_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Fixed().Roll())
}
