// Package prng provides the deterministic random stream behind every
// random choice the engine makes.
//
// A Source is keyed by a seed string and a loop index. Its position is the
// session's cycle counter: on construction the stream is fast-forwarded by
// cycle mod Window draws, so a session restored from a checkpoint replays
// the exact draws the original session would have seen.
package prng

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// Window bounds the fast-forward on construction.
const Window = 10000

// Source is a positioned deterministic stream. It is not safe for
// concurrent use; each advance call builds its own.
type Source struct {
	rng    *rand.Rand
	s1, s2 uint64
	cycle  int
}

// New builds a stream for seed and loop positioned at cycle.
func New(seed string, loop, cycle int) *Source {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	s1 := h.Sum64()
	s2 := uint64(loop)<<1 | 1
	r := rand.New(rand.NewPCG(s1, s2))

	if cycle < 0 {
		cycle = 0
	}
	for i := 0; i < cycle%Window; i++ {
		r.Float64()
	}
	return &Source{rng: r, s1: s1, s2: s2, cycle: cycle}
}

// Cycle returns the number of draws taken so far, including the offset the
// source was constructed with.
func (s *Source) Cycle() int { return s.cycle }

// Next returns a float in [0, 1) and advances the cycle.
// The stream repeats every Window draws so that a source rebuilt at any
// cycle continues exactly where the previous one stopped.
func (s *Source) Next() float64 {
	if s.cycle > 0 && s.cycle%Window == 0 {
		s.rng = rand.New(rand.NewPCG(s.s1, s.s2))
	}
	s.cycle++
	return s.rng.Float64()
}

// Intn returns an int in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(s.Next() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Range returns an int in [lo, hi].
func (s *Source) Range(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.Intn(hi-lo+1)
}

// Shuffle permutes n elements with Fisher-Yates.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, s.Intn(i+1))
	}
}

// Perm returns a shuffled [0, n).
func (s *Source) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	s.Shuffle(n, func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

var diceRe = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Roll evaluates dice notation such as "d20", "2d6" or "3d8+2".
func (s *Source) Roll(notation string) (int, error) {
	m := diceRe.FindStringSubmatch(strings.ToLower(strings.ReplaceAll(notation, " ", "")))
	if m == nil {
		return 0, fmt.Errorf("invalid dice notation %q", notation)
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if count <= 0 || count > 100 || sides <= 0 {
		return 0, fmt.Errorf("dice out of range %q", notation)
	}
	total := 0
	for i := 0; i < count; i++ {
		total += s.Range(1, sides)
	}
	if m[3] != "" {
		mod, _ := strconv.Atoi(m[3])
		total += mod
	}
	return total, nil
}
