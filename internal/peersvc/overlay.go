package peersvc

import (
	"time"

	"meshgossip/internal/wire"
)

// handleInbound services one accepted socket from another peer. The
// first HELLO determines peer identity; every message after is
// dispatched by type until the socket closes, at which point an
// identified neighbour immediately starts suspicion rather than
// waiting on the missed-ping counter (spec.md §4.8).
func (n *Node) handleInbound(conn *wire.Conn) {
	var peerKey wire.Endpoint
	var known bool

	for {
		msg, ok := conn.Recv()
		if !ok {
			if known {
				n.log.Infof("Lost inbound connection from %s", peerKey)
				n.startSuspicion(peerKey)
			}
			break
		}

		switch msg.Type {
		case wire.TypeHello:
			peerKey = wire.Endpoint{IP: msg.IP, Port: msg.Port}
			known = true
			n.nbrMu.Lock()
			n.neighbours[peerKey] = conn
			n.nbrMu.Unlock()
			n.reportNeighbourCount()
			n.mpMu.Lock()
			n.missedPings[peerKey] = 0
			n.mpMu.Unlock()
			n.log.Infof("Inbound HELLO from %s", peerKey)
		case wire.TypeGossip:
			n.onGossip(msg, conn)
		case wire.TypePing:
			conn.Send(wire.Message{Type: wire.TypePong, FromIP: n.Self.IP, FromPort: n.Self.Port})
		case wire.TypePong:
			if known {
				n.resetMissed(peerKey)
				n.markPonged(peerKey)
			}
		case wire.TypeSuspectRequest:
			n.onSuspectRequest(msg, conn)
		case wire.TypeSuspectResponse:
			n.onSuspectResponse(msg)
		case wire.TypeDeadConfirmed:
			n.onDeadConfirmed(wire.Endpoint{IP: msg.DeadIP, Port: msg.DeadPort})
		}
	}

	if known {
		n.nbrMu.Lock()
		if n.neighbours[peerKey] == conn {
			delete(n.neighbours, peerKey)
		}
		n.nbrMu.Unlock()
		n.reportNeighbourCount()
	}
	conn.Close()
}

// connectToNeighbours dials every selected neighbour concurrently,
// skipping a self-reference should one slip through selection.
func (n *Node) connectToNeighbours(neighbours []wire.Endpoint) {
	for _, nb := range neighbours {
		if nb == n.Self {
			continue
		}
		go n.connectOneNeighbour(nb)
	}
}

func (n *Node) connectOneNeighbour(peer wire.Endpoint) {
	conn, err := tcpConnect(peer, 5, 5*time.Second)
	if err != nil {
		n.log.Warnf("Could not connect to neighbour %s", peer)
		return
	}
	conn.Send(wire.Message{Type: wire.TypeHello, IP: n.Self.IP, Port: n.Self.Port})

	n.nbrMu.Lock()
	n.neighbours[peer] = conn
	n.nbrMu.Unlock()
	n.reportNeighbourCount()
	n.mpMu.Lock()
	n.missedPings[peer] = 0
	n.mpMu.Unlock()
	n.log.Infof("Connected to neighbour %s", peer)

	n.listenNeighbour(conn, peer)
}

// listenNeighbour is the outbound neighbour receive loop.
func (n *Node) listenNeighbour(conn *wire.Conn, peer wire.Endpoint) {
	for {
		msg, ok := conn.Recv()
		if !ok {
			n.log.Infof("Lost connection to neighbour %s", peer)
			n.startSuspicion(peer)
			n.nbrMu.Lock()
			if n.neighbours[peer] == conn {
				delete(n.neighbours, peer)
			}
			n.nbrMu.Unlock()
			n.reportNeighbourCount()
			return
		}

		switch msg.Type {
		case wire.TypeGossip:
			n.onGossip(msg, conn)
		case wire.TypePing:
			conn.Send(wire.Message{Type: wire.TypePong, FromIP: n.Self.IP, FromPort: n.Self.Port})
		case wire.TypePong:
			n.resetMissed(peer)
			n.markPonged(peer)
		case wire.TypeSuspectRequest:
			n.onSuspectRequest(msg, conn)
		case wire.TypeSuspectResponse:
			n.onSuspectResponse(msg)
		case wire.TypeDeadConfirmed:
			n.onDeadConfirmed(wire.Endpoint{IP: msg.DeadIP, Port: msg.DeadPort})
		}
	}
}

// broadcast sends msg to every neighbour except the socket it arrived
// on (nil excludes none). The neighbour slice is copied out under
// lock before any I/O, per spec.md §5.
func (n *Node) broadcast(msg wire.Message, exclude *wire.Conn) {
	n.nbrMu.Lock()
	targets := make([]*wire.Conn, 0, len(n.neighbours))
	for _, c := range n.neighbours {
		targets = append(targets, c)
	}
	n.nbrMu.Unlock()

	for _, c := range targets {
		if c != exclude {
			c.Send(msg)
		}
	}
}

func (n *Node) resetMissed(peer wire.Endpoint) {
	n.mpMu.Lock()
	n.missedPings[peer] = 0
	n.mpMu.Unlock()
}

func (n *Node) markPonged(peer wire.Endpoint) {
	n.pongMu.Lock()
	n.pongReceived[peer] = true
	n.pongMu.Unlock()
}

// reportNeighbourCount refreshes the neighbour-count gauge after a
// neighbour is added or removed. Must be called with n.nbrMu released.
func (n *Node) reportNeighbourCount() {
	n.metrics.NeighbourCount.Set(float64(n.NeighbourCount()))
}
