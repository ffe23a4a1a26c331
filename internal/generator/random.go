package generator

import (
	"math/rand/v2"
	"time"
)

// Source is the randomness a generator draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// NewSource returns a deterministic PCG-backed source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Weighted is one option of a weighted choice.
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// Choose picks one option with probability proportional to its weight.
// Non-positive weights are never picked. It panics on an empty slice or
// when no option has a positive weight.
func Choose[T any](src Source, options []Weighted[T]) T {
	var total float64
	for _, o := range options {
		if o.Weight > 0 {
			total += o.Weight
		}
	}
	if total <= 0 {
		panic("generator: Choose needs at least one positive weight")
	}

	r := src.Float64() * total
	var last T
	for _, o := range options {
		if o.Weight <= 0 {
			continue
		}
		if r < o.Weight {
			return o.Value
		}
		r -= o.Weight
		last = o.Value
	}
	// float rounding can leave r == total
	return last
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	return Choose(src, []Weighted[bool]{
		{Value: true, Weight: p},
		{Value: false, Weight: 1 - p},
	})
}

// Pick returns a uniformly chosen element of pool.
func Pick[T any](src Source, pool []T) T {
	return pool[src.IntN(len(pool))]
}

// Uniform draws from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// UniformDuration draws from [lo, hi). It always consumes one draw so the
// sequence of draws does not depend on the configured range.
func UniformDuration(src Source, lo, hi time.Duration) time.Duration {
	f := src.Float64()
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(f*float64(hi-lo))
}
