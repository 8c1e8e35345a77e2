// Package peersvc implements the peer role: serial seed bootstrap,
// power-law neighbour selection, gossip flood-fill, two-level
// liveness, and peer-level suspicion, per spec.md §4.4-§4.9 and
// original_source/peer.py.
package peersvc

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"meshgossip/internal/metrics"
	"meshgossip/internal/wire"
)

const (
	gossipInterval  = 5 * time.Second
	maxGossip       = 10
	pingInterval    = 8 * time.Second
	pingMissThresh  = 3
	suspectTimeout  = 20 * time.Second
)

// suspicion tracks one in-flight peer-level suspicion.
type suspicion struct {
	confirmations map[string]bool
	reported      bool
}

// Node is one peer process's entire state.
type Node struct {
	Self     wire.Endpoint
	AllSeeds []wire.Endpoint
	Quorum   int

	log     *logrus.Logger
	metrics *metrics.Set
	rng     *rand.Rand

	mlMu sync.Mutex
	ml   map[string]bool // gossip hashes already seen

	nbrMu       sync.Mutex
	neighbours  map[wire.Endpoint]*wire.Conn

	seedMu     sync.Mutex
	seedConns  map[wire.Endpoint]*wire.Conn

	mpMu         sync.Mutex
	missedPings  map[wire.Endpoint]int

	pongMu       sync.Mutex
	pongReceived map[wire.Endpoint]bool

	suspMu    sync.Mutex
	suspected map[wire.Endpoint]*suspicion

	gcMu         sync.Mutex
	gossipCount int
}

// New builds a peer Node. rng lets callers inject a seeded source for
// deterministic neighbour-selection tests.
func New(self wire.Endpoint, allSeeds []wire.Endpoint, log *logrus.Logger, rng *rand.Rand) *Node {
	n := &Node{
		Self:         self,
		AllSeeds:     allSeeds,
		Quorum:       len(allSeeds)/2 + 1,
		log:          log,
		metrics:      metrics.NewSet(),
		rng:          rng,
		ml:           make(map[string]bool),
		neighbours:   make(map[wire.Endpoint]*wire.Conn),
		seedConns:    make(map[wire.Endpoint]*wire.Conn),
		missedPings:  make(map[wire.Endpoint]int),
		pongReceived: make(map[wire.Endpoint]bool),
		suspected:    make(map[wire.Endpoint]*suspicion),
	}
	n.log.Infof("Initialized quorum=%d/%d", n.Quorum, len(allSeeds))
	return n
}

// Metrics exposes the node's collector set for the status API.
func (n *Node) Metrics() *metrics.Set {
	return n.metrics
}

// NeighbourCount reports the current live neighbour set size.
func (n *Node) NeighbourCount() int {
	n.nbrMu.Lock()
	defer n.nbrMu.Unlock()
	return len(n.neighbours)
}

// NeighbourEndpoints returns a snapshot of the current neighbour set,
// for the status API.
func (n *Node) NeighbourEndpoints() []wire.Endpoint {
	n.nbrMu.Lock()
	defer n.nbrMu.Unlock()
	out := make([]wire.Endpoint, 0, len(n.neighbours))
	for ep := range n.neighbours {
		out = append(out, ep)
	}
	return out
}

// GossipSeen reports how many distinct gossip hashes this peer has
// observed, for the status API.
func (n *Node) GossipSeen() int {
	n.mlMu.Lock()
	defer n.mlMu.Unlock()
	return len(n.ml)
}
