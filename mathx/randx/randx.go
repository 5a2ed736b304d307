package randx

import (
	"math/rand/v2"
)

// NewPCG returns a generator fully determined by seed.
func NewPCG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewStepPCG returns the generator for the idx-th independent step of a run seeded by seed.
// The stream depends only on (seed, idx), so steps can run on any worker in any order.
func NewStepPCG(seed uint64, idx int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(idx)))
}
