// Package seedsvc implements the seed role: seed mesh formation, the
// registration/removal consensus engine, and the authoritative peer
// registry, per spec.md §4.2-§4.3.
package seedsvc

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"meshgossip/internal/metrics"
	"meshgossip/internal/wire"
)

// member is one peer_list entry.
type member struct {
	Degree       int
	RegisteredAt time.Time
}

// pendingVote tracks one in-flight registration or removal proposal.
type pendingVote struct {
	Peer     wire.Endpoint
	Votes    map[string]bool // voter id -> vote
	Decided  bool
	// RequesterConn is set only for registration: the socket to answer
	// with REGISTER_RESPONSE once the vote decides.
	RequesterConn *wire.Conn
}

// Node is one seed process's entire state. All maps are guarded by
// their own mutex, per spec.md §5's shared-resource policy: locks are
// always released before any network I/O.
type Node struct {
	Self    wire.Endpoint
	AllSeeds []wire.Endpoint
	Quorum  int

	log     *logrus.Logger
	metrics *metrics.Set

	plMu     sync.Mutex
	peerList map[wire.Endpoint]*member

	// registrants holds the registration socket for every currently
	// registered peer so DEAD_CONFIRMED can be pushed to it later —
	// see SPEC_FULL.md §1.1 ("DEAD_CONFIRMED peer fan-out").
	regMu       sync.Mutex
	registrants map[wire.Endpoint]*wire.Conn

	prMu       sync.Mutex
	pendingReg map[string]*pendingVote

	premMu      sync.Mutex
	pendingRem map[string]*pendingVote

	drMu        sync.Mutex
	deadReports map[wire.Endpoint]map[string]bool

	scMu          sync.Mutex
	seedChannels map[string]*wire.Conn
}

// New builds a seed Node with the given identity and fixed seed set.
func New(self wire.Endpoint, allSeeds []wire.Endpoint, log *logrus.Logger) *Node {
	n := &Node{
		Self:         self,
		AllSeeds:     allSeeds,
		Quorum:       quorum(len(allSeeds)),
		log:          log,
		metrics:      metrics.NewSet(),
		peerList:     make(map[wire.Endpoint]*member),
		registrants:  make(map[wire.Endpoint]*wire.Conn),
		pendingReg:   make(map[string]*pendingVote),
		pendingRem:   make(map[string]*pendingVote),
		deadReports:  make(map[wire.Endpoint]map[string]bool),
		seedChannels: make(map[string]*wire.Conn),
	}
	n.log.Infof("Initialized n_seeds=%d quorum=%d", len(allSeeds), n.Quorum)
	return n
}

func quorum(n int) int {
	return n/2 + 1
}

// Metrics exposes the node's collector set for the status API to
// register against an HTTP handler.
func (n *Node) Metrics() *metrics.Set {
	return n.metrics
}

// MetricsCollectors lets callers gather ad-hoc, e.g. tests.
func (n *Node) MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		n.metrics.PeerListSize, n.metrics.RegistrationsTotal, n.metrics.RemovalsTotal,
	}
}

// PeerListSize returns the current membership count (read-only, for
// the status API).
func (n *Node) PeerListSize() int {
	n.plMu.Lock()
	defer n.plMu.Unlock()
	return len(n.peerList)
}

// PeerListSnapshot returns every (endpoint, degree) pair currently
// registered, for the status API. PEER_LIST_REQUEST handling uses
// peerListExcluding instead.
func (n *Node) PeerListSnapshot() []wire.PeerListEntry {
	n.plMu.Lock()
	defer n.plMu.Unlock()
	out := make([]wire.PeerListEntry, 0, len(n.peerList))
	for ep, m := range n.peerList {
		out = append(out, wire.PeerListEntry{IP: ep.IP, Port: ep.Port, Degree: m.Degree})
	}
	return out
}

func (n *Node) peerListExcluding(exclude wire.Endpoint) []wire.PeerListEntry {
	n.plMu.Lock()
	defer n.plMu.Unlock()
	out := make([]wire.PeerListEntry, 0, len(n.peerList))
	for ep, m := range n.peerList {
		if ep == exclude {
			continue
		}
		out = append(out, wire.PeerListEntry{IP: ep.IP, Port: ep.Port, Degree: m.Degree})
	}
	return out
}
