// Package topology implements the power-law preferential-attachment
// neighbour sampling used by peer bootstrap, grounded on
// original_source/peer.py's _select_neighbours.
package topology

import (
	"math"
	"math/rand"

	"meshgossip/internal/wire"
)

// Candidate is one union-peer-list entry eligible for selection.
type Candidate struct {
	Endpoint wire.Endpoint
	Degree   int
}

const paretoAlpha = 2.5

// paretoVariate draws from a Pareto(alpha) distribution via inverse
// transform sampling, the same distribution random.paretovariate
// produces in the original Python.
func paretoVariate(rng *rand.Rand, alpha float64) float64 {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return 1.0 / math.Pow(u, 1.0/alpha)
}

// SelectNeighbours draws k distinct candidates without replacement,
// weighted by degree+1, where k is sampled from Pareto(2.5) clamped to
// [1, len(candidates)]. rng lets callers inject a seeded source for
// deterministic tests; pass rand.New(rand.NewSource(time.Now().UnixNano()))
// in production.
func SelectNeighbours(rng *rand.Rand, candidates []Candidate) []wire.Endpoint {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	k := int(paretoVariate(rng, paretoAlpha))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	remaining := make([]Candidate, n)
	copy(remaining, candidates)
	weights := make([]float64, n)
	for i, c := range remaining {
		weights[i] = float64(c.Degree) + 1.0
	}

	chosen := make([]wire.Endpoint, 0, k)
	for i := 0; i < k && len(remaining) > 0; i++ {
		total := 0.0
		for _, w := range weights {
			total += w
		}
		draw := rng.Float64() * total

		picked := len(remaining) - 1 // floating-point drift fallback: last remaining index
		cum := 0.0
		for idx, w := range weights {
			cum += w
			if draw <= cum {
				picked = idx
				break
			}
		}

		chosen = append(chosen, remaining[picked].Endpoint)
		remaining = append(remaining[:picked], remaining[picked+1:]...)
		weights = append(weights[:picked], weights[picked+1:]...)
	}
	return chosen
}
