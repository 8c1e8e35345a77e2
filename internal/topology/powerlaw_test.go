package topology

import (
	"math/rand"
	"testing"

	"meshgossip/internal/wire"
)

func TestSelectNeighboursEmptyCandidates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := SelectNeighbours(rng, nil); got != nil {
		t.Fatalf("expected nil for no candidates, got %v", got)
	}
}

func TestSelectNeighboursNoDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	candidates := make([]Candidate, 20)
	for i := range candidates {
		candidates[i] = Candidate{
			Endpoint: wire.Endpoint{IP: "127.0.0.1", Port: 9000 + i},
			Degree:   i % 5,
		}
	}

	chosen := SelectNeighbours(rng, candidates)
	if len(chosen) < 1 || len(chosen) > len(candidates) {
		t.Fatalf("chosen count %d out of bounds for %d candidates", len(chosen), len(candidates))
	}
	seen := make(map[wire.Endpoint]bool)
	for _, ep := range chosen {
		if seen[ep] {
			t.Fatalf("duplicate endpoint selected: %v", ep)
		}
		seen[ep] = true
	}
}

func TestSelectNeighboursSingleCandidate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	candidates := []Candidate{{Endpoint: wire.Endpoint{IP: "127.0.0.1", Port: 9000}, Degree: 0}}
	chosen := SelectNeighbours(rng, candidates)
	if len(chosen) != 1 {
		t.Fatalf("expected exactly 1 neighbour from a single candidate, got %d", len(chosen))
	}
}
