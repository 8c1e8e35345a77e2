package seedsvc

import (
	"net"
	"time"

	"meshgossip/internal/wire"
)

// Listen binds the seed's TCP listener. The caller starts Serve in a
// goroutine and, after a short grace period, DialHigherPortSeeds.
func (n *Node) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", n.Self.String())
	if err != nil {
		return nil, err
	}
	n.log.Infof("Listening on %s", n.Self.String())
	return ln, nil
}

// Serve accepts inbound connections forever, each handled on its own
// goroutine, until the listener closes.
func (n *Node) Serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go n.handleInbound(wire.NewConn(conn))
	}
}

// handleInbound services one accepted socket. The first message
// determines whether this is a seed-mesh peer (SEED_HELLO) or a
// registering client peer; either way subsequent messages are routed
// by type for the lifetime of the connection.
func (n *Node) handleInbound(conn *wire.Conn) {
	var seedID string
	var registrant *wire.Endpoint

	defer func() {
		conn.Close()
		if seedID != "" {
			n.scMu.Lock()
			if n.seedChannels[seedID] == conn {
				delete(n.seedChannels, seedID)
			}
			n.scMu.Unlock()
		}
		if registrant != nil {
			n.regMu.Lock()
			if n.registrants[*registrant] == conn {
				delete(n.registrants, *registrant)
			}
			n.regMu.Unlock()
		}
	}()

	for {
		msg, ok := conn.Recv()
		if !ok {
			return
		}
		if msg.Type == wire.TypeSeedHello {
			seedID = msg.SeedID
			n.scMu.Lock()
			n.seedChannels[seedID] = conn
			n.scMu.Unlock()
			n.log.Infof("Seed %s connected (inbound)", seedID)
			continue
		}
		if msg.Type == wire.TypeRegisterRequest {
			ep := wire.Endpoint{IP: msg.IP, Port: msg.Port}
			registrant = &ep
		}
		n.routeMessage(msg, conn)
	}
}

// DialHigherPortSeeds connects out to every configured seed whose port
// is strictly greater than our own — the deterministic tie-break that
// guarantees exactly one socket per seed pair (spec.md §4.2).
func (n *Node) DialHigherPortSeeds() {
	for _, s := range n.AllSeeds {
		if s.Port > n.Self.Port {
			go n.dialOneSeed(s)
		}
	}
}

// dialOneSeed connects, announces via SEED_HELLO, stores the socket,
// and reads from it until it drops, then retries with linear backoff
// up to 15 attempts, matching original_source/seed.py's
// _dial_one_seed.
func (n *Node) dialOneSeed(s wire.Endpoint) {
	peerID := s.String()
	for attempt := 0; attempt < 15; attempt++ {
		conn, err := net.DialTimeout("tcp", s.String(), 5*time.Second)
		if err == nil {
			wc := wire.NewConn(conn)
			wc.Send(wire.Message{Type: wire.TypeSeedHello, SeedID: n.Self.String()})

			n.scMu.Lock()
			n.seedChannels[peerID] = wc
			n.scMu.Unlock()
			n.log.Infof("Dialled seed %s", peerID)

			for {
				msg, ok := wc.Recv()
				if !ok {
					break
				}
				n.routeMessage(msg, wc)
			}

			n.scMu.Lock()
			if n.seedChannels[peerID] == wc {
				delete(n.seedChannels, peerID)
			}
			n.scMu.Unlock()
			n.log.Infof("Lost connection to seed %s — will retry", peerID)
		}
		time.Sleep(time.Duration(3+attempt) * time.Second)
	}
}

// broadcastToSeeds sends msg to every currently connected peer seed.
// The socket slice is copied out under lock before any I/O, per the
// shared-resource policy in spec.md §5.
func (n *Node) broadcastToSeeds(msg wire.Message) {
	n.scMu.Lock()
	targets := make([]*wire.Conn, 0, len(n.seedChannels))
	for _, c := range n.seedChannels {
		targets = append(targets, c)
	}
	n.scMu.Unlock()

	for _, c := range targets {
		c.Send(msg)
	}
}

// broadcastToRegistrants pushes msg to every peer currently holding a
// registration socket with this seed — the distinct delivery path
// DEAD_CONFIRMED needs beyond the seed mesh (SPEC_FULL.md §1.1).
func (n *Node) broadcastToRegistrants(msg wire.Message) {
	n.regMu.Lock()
	targets := make([]*wire.Conn, 0, len(n.registrants))
	for _, c := range n.registrants {
		targets = append(targets, c)
	}
	n.regMu.Unlock()

	for _, c := range targets {
		c.Send(msg)
	}
}

// SeedChannelCount reports how many seed-mesh sockets are currently
// open, for tests and the status API.
func (n *Node) SeedChannelCount() int {
	n.scMu.Lock()
	defer n.scMu.Unlock()
	return len(n.seedChannels)
}
