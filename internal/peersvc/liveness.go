package peersvc

import (
	"time"

	"meshgossip/internal/probe"
	"meshgossip/internal/wire"
)

// livenessLoop runs the two-level check described in spec.md §4.8: a
// TCP PING/PONG round plus a system ICMP probe, each missed response
// incrementing a per-neighbour counter that triggers suspicion at
// pingMissThresh.
func (n *Node) livenessLoop() {
	time.Sleep(5 * time.Second) // let gossip start first

	for {
		n.pongMu.Lock()
		n.pongReceived = make(map[wire.Endpoint]bool)
		n.pongMu.Unlock()

		n.nbrMu.Lock()
		targets := make([]wire.Endpoint, 0, len(n.neighbours))
		for ep := range n.neighbours {
			targets = append(targets, ep)
		}
		n.nbrMu.Unlock()

		for _, peer := range targets {
			n.nbrMu.Lock()
			conn := n.neighbours[peer]
			n.nbrMu.Unlock()
			if conn != nil {
				if !conn.Send(wire.Message{Type: wire.TypePing, FromIP: n.Self.IP, FromPort: n.Self.Port}) {
					n.miss(peer)
				}
			}
			if !probe.ICMPPing(peer.IP) {
				n.miss(peer)
			}
		}

		time.Sleep(pingInterval / 2)

		n.nbrMu.Lock()
		stillAlive := make([]wire.Endpoint, 0, len(n.neighbours))
		for ep := range n.neighbours {
			stillAlive = append(stillAlive, ep)
		}
		n.nbrMu.Unlock()

		n.pongMu.Lock()
		ponged := make(map[wire.Endpoint]bool, len(n.pongReceived))
		for ep := range n.pongReceived {
			ponged[ep] = true
		}
		n.pongMu.Unlock()

		for _, peer := range stillAlive {
			if !ponged[peer] {
				n.miss(peer)
			} else {
				n.resetMissed(peer)
			}
		}

		time.Sleep(pingInterval / 2)
	}
}

func (n *Node) miss(peer wire.Endpoint) {
	n.mpMu.Lock()
	n.missedPings[peer]++
	count := n.missedPings[peer]
	n.mpMu.Unlock()
	n.metrics.MissedPingTotal.Inc()
	if count >= pingMissThresh {
		n.startSuspicion(peer)
	}
}
