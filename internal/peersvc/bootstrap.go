package peersvc

import (
	"fmt"
	"net"
	"time"

	"meshgossip/internal/topology"
	"meshgossip/internal/wire"
)

// Listen binds the peer's inbound TCP listener. Strictly serial
// bootstrap per spec.md §4.4: this must happen before any seed
// registration attempt.
func (n *Node) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", n.Self.String())
	if err != nil {
		return nil, err
	}
	n.log.Infof("Listening on %s", n.Self.String())
	return ln, nil
}

// Serve accepts inbound peer connections forever.
func (n *Node) Serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go n.handleInbound(wire.NewConn(conn))
	}
}

// Start runs the rest of the serial bootstrap sequence: seed
// registration, union peer-list neighbour selection, neighbour
// connect, then the gossip and liveness loops. Returns an error only
// when registration succeeded with zero seeds (spec.md §1.1: bootstrap
// aborts only on total registration failure).
func (n *Node) Start() error {
	registered, candidates := n.registerAndCollect()
	if registered == 0 {
		return fmt.Errorf("peersvc: could not register with any seed")
	}
	n.log.Infof("Registered with %d/%d seeds, union peer list has %d entries", registered, len(n.AllSeeds), len(candidates))

	neighbours := topology.SelectNeighbours(n.rng, candidates)
	n.log.Infof("Selected neighbours (power-law): %v", neighbours)

	n.connectToNeighbours(neighbours)
	time.Sleep(2 * time.Second) // allow inbound connections from neighbours too

	go n.gossipLoop()
	go n.livenessLoop()
	return nil
}

// registerAndCollect registers with every configured seed (shuffled
// order), synchronously consuming each REGISTER_RESPONSE before
// handing the socket to a background listener, then returns how many
// seeds accepted the registration and the union peer list (max degree
// per endpoint wins), mirroring original_source/peer.py's
// _register_and_collect.
func (n *Node) registerAndCollect() (int, []topology.Candidate) {
	candidates := make([]wire.Endpoint, len(n.AllSeeds))
	copy(candidates, n.AllSeeds)
	n.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	degreeByEndpoint := make(map[wire.Endpoint]int)
	registered := 0

	for _, seed := range candidates {
		conn, err := tcpConnect(seed, 4, 5*time.Second)
		if err != nil {
			n.log.Warnf("Cannot reach seed %s", seed)
			continue
		}

		n.log.Infof("Registering with seed %s", seed)
		ok := conn.Send(wire.Message{Type: wire.TypeRegisterRequest, IP: n.Self.IP, Port: n.Self.Port})
		if !ok {
			conn.Close()
			continue
		}

		resp, ok := conn.Recv()
		if !ok || resp.Status != "ok" {
			n.log.Warnf("Registration rejected/failed at %s: %+v", seed, resp)
			conn.Close()
			continue
		}

		n.log.Infof("Registered with seed %s, peer list has %d entries", seed, len(resp.PeerList))
		for _, p := range resp.PeerList {
			ep := wire.Endpoint{IP: p.IP, Port: p.Port}
			if ep == n.Self {
				continue
			}
			if d, seen := degreeByEndpoint[ep]; !seen || p.Degree > d {
				degreeByEndpoint[ep] = p.Degree
			}
		}

		registered++
		n.seedMu.Lock()
		n.seedConns[seed] = conn
		n.seedMu.Unlock()
		go n.listenSeed(conn, seed)
	}

	n.log.Infof("Registered with %d/%d required seeds", registered, n.Quorum)
	entries := make([]topology.Candidate, 0, len(degreeByEndpoint))
	for ep, deg := range degreeByEndpoint {
		entries = append(entries, topology.Candidate{Endpoint: ep, Degree: deg})
	}
	return registered, entries
}

// listenSeed is the background reader for a seed socket kept open
// after synchronous registration, handling DEAD_CONFIRMED pushes.
func (n *Node) listenSeed(conn *wire.Conn, seed wire.Endpoint) {
	for {
		msg, ok := conn.Recv()
		if !ok {
			n.log.Infof("Seed %s connection closed", seed)
			return
		}
		if msg.Type == wire.TypeDeadConfirmed {
			n.onDeadConfirmed(wire.Endpoint{IP: msg.DeadIP, Port: msg.DeadPort})
		}
	}
}

// tcpConnect dials with linear backoff (1+i seconds) across retries
// attempts, each with a fixed 5s connect timeout.
func tcpConnect(ep wire.Endpoint, retries int, timeout time.Duration) (*wire.Conn, error) {
	var lastErr error
	for i := 0; i < retries; i++ {
		conn, err := net.DialTimeout("tcp", ep.String(), timeout)
		if err == nil {
			return wire.NewConn(conn), nil
		}
		lastErr = err
		time.Sleep(time.Duration(1+i) * time.Second)
	}
	return nil, lastErr
}
