// Package labdata generates a fictitious clinical laboratory dataset: a pool of
// synthetic patients, a blood panel or covid swab per visit, and the small and
// large datasets built from them with controlled duplicates and label noise.
package labdata

import (
	"math/rand/v2"
	"time"
)

// Rand is the random source every generator in this package draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
	NormFloat64() float64
}

// NewRand returns a seeded source. If seed is 0 a time-based seed is chosen.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// between returns a uniform integer in [lo, hi].
func between(rng Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func pick(rng Rand, pool []string) string {
	return pool[rng.IntN(len(pool))]
}
