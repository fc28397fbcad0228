package mcts

import (
	rng "github.com/leesper/go_rng"
)

// randSource is the Dirichlet sampler, seeded once per search so repeated
// Search calls with the same seed reproduce identical root noise (useful
// for the deterministic-with-fixed-seed property of §8).
type randSource struct {
	gamma *rng.GammaGenerator
}

// newRandSource builds a seeded Dirichlet sampler.
func newRandSource(seed int64) *randSource {
	return &randSource{gamma: rng.NewGammaGenerator(seed)}
}

// sampleDirichlet draws one sample from Dirichlet(alpha, alpha, ..., alpha)
// over n components, using the standard construction of n independent
// Gamma(alpha, 1) draws normalized to sum to 1.
func sampleDirichlet(alpha float32, n int, r *randSource) []float32 {
	sample := make([]float32, n)
	var sum float32
	for i := range sample {
		g := float32(r.gamma.Gamma(float64(alpha), 1.0))
		if g <= 0 {
			g = 1e-6
		}
		sample[i] = g
		sum += g
	}
	for i := range sample {
		sample[i] /= sum
	}
	return sample
}
