package prng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draws(s *Source, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

func TestDeterministic(t *testing.T) {
	a := draws(New("seed", 0, 0), 20)
	b := draws(New("seed", 0, 0), 20)
	assert.Equal(t, a, b)

	c := draws(New("other", 0, 0), 20)
	assert.NotEqual(t, a, c)

	d := draws(New("seed", 1, 0), 20)
	assert.NotEqual(t, a, d)
}

func TestResumeAtCycle(t *testing.T) {
	full := New("seed", 0, 0)
	all := draws(full, 10)
	assert.Equal(t, 10, full.Cycle())

	resumed := New("seed", 0, 4)
	assert.Equal(t, all[4:], draws(resumed, 6))
	assert.Equal(t, 10, resumed.Cycle())
}

func TestBounds(t *testing.T) {
	s := New("bounds", 0, 0)
	for i := 0; i < 1000; i++ {
		v := s.Range(1, 6)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 6)
	}
	assert.Equal(t, 0, s.Intn(0))
}

func TestPerm(t *testing.T) {
	p := New("perm", 0, 0).Perm(5)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, p)
}

func TestRoll(t *testing.T) {
	s := New("dice", 0, 0)
	v, err := s.Roll("2d6+1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v, 3)
	assert.LessOrEqual(t, v, 13)

	_, err = s.Roll("banana")
	assert.Error(t, err)
}

func TestResumeAcrossWindow(t *testing.T) {
	full := New("wrap", 0, 0)
	draws(full, Window+5)
	tail := draws(full, 3)

	resumed := New("wrap", 0, Window+5)
	assert.Equal(t, tail, draws(resumed, 3))
}
