// Package rng provides the deterministic random source shared by the engine.
//
// A Source is not safe for concurrent use. Every Configuration owns its own
// Source; parallel workers and islands derive independent streams with Derive.
package rng

import "math/rand/v2"

// DefaultSeed is used when callers pass seed 0 so that runs stay reproducible.
const DefaultSeed int64 = 1

// Source is the random contract consumed by genes, selectors and operators.
type Source interface {
	IntN(n int) int
	Float64() float64
	Bool() bool
	NormFloat64() float64
}

// PCG is a Source backed by math/rand/v2's PCG generator.
type PCG struct {
	seed int64
	r    *rand.Rand
}

func New(seed int64) *PCG {
	if seed == 0 {
		seed = DefaultSeed
	}
	s := uint64(seed)
	return &PCG{
		seed: seed,
		r:    rand.New(rand.NewPCG(s, mix(s))),
	}
}

func (p *PCG) Seed() int64 {
	return p.seed
}

// IntN returns a value in [0, n). It returns 0 for n <= 0 instead of panicking.
func (p *PCG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return p.r.IntN(n)
}

func (p *PCG) Float64() float64 {
	return p.r.Float64()
}

func (p *PCG) Bool() bool {
	return p.r.Uint64()&1 == 1
}

func (p *PCG) NormFloat64() float64 {
	return p.r.NormFloat64()
}

// Derive mixes a parent seed and a stream id into an independent child seed.
func Derive(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	return int64(mix(x))
}

// Shuffle permutes idx in place with Fisher-Yates.
func Shuffle(src Source, idx []int) {
	for i := len(idx) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
}

// Perm returns a random permutation of [0, n).
func Perm(src Source, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	Shuffle(src, idx)
	return idx
}

// mix is the SplitMix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
