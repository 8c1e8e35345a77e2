package seedsvc

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"meshgossip/internal/wire"
)

// routeMessage dispatches one received message to its handler.
// Unknown types are silently ignored (spec.md §4.1).
func (n *Node) routeMessage(msg wire.Message, conn *wire.Conn) {
	switch msg.Type {
	case wire.TypeRegisterRequest:
		n.onRegisterRequest(msg, conn)
	case wire.TypeRegisterProposal:
		n.onRegisterProposal(msg, conn)
	case wire.TypeRegisterVote:
		n.onRegisterVote(msg)
	case wire.TypePeerListRequest:
		n.onPeerListRequest(msg, conn)
	case wire.TypeDeadReport:
		n.onDeadReport(msg)
	case wire.TypeDeadProposal:
		n.onDeadProposal(msg, conn)
	case wire.TypeDeadVote:
		n.onDeadVote(msg)
	case wire.TypeDeadConfirmed:
		n.onDeadConfirmedFromPeerSeed(msg)
	}
}

// newReqID encodes the proposer endpoint and a monotonic clock
// reading (spec.md §4.3 invariant), with a uuid suffix purely to rule
// out collisions under heavy concurrent load. The clock reading is
// clock's monotonic offset from reqClockBase, in nanoseconds.
func newReqID(kind string, proposer wire.Endpoint, clock time.Time) string {
	return fmt.Sprintf("%s_%s_%d_%s", kind, proposer.String(), clock.Sub(reqClockBase).Nanoseconds(), uuid.New().String()[:8])
}

// reqClockBase is the process-start reference newReqID measures from.
var reqClockBase = time.Now()

// onRegisterRequest handles a peer's REGISTER_REQUEST. If already
// registered, replies immediately; otherwise this seed becomes the
// proposer for a registration vote.
func (n *Node) onRegisterRequest(msg wire.Message, conn *wire.Conn) {
	peer := wire.Endpoint{IP: msg.IP, Port: msg.Port}

	n.plMu.Lock()
	_, already := n.peerList[peer]
	n.plMu.Unlock()
	if already {
		n.log.Infof("REGISTER_REQUEST %s — already in PL, ACK", peer)
		n.rememberRegistrant(peer, conn)
		conn.Send(wire.Message{
			Type:     wire.TypeRegisterResponse,
			Status:   "ok",
			PeerList: n.peerListExcluding(peer),
		})
		return
	}

	reqID := newReqID("reg", n.Self, time.Now())
	n.log.Infof("REGISTER_REQUEST %s req_id=%s", peer, reqID)

	n.prMu.Lock()
	n.pendingReg[reqID] = &pendingVote{
		Peer:          peer,
		Votes:         map[string]bool{n.Self.String(): true},
		RequesterConn: conn,
	}
	n.prMu.Unlock()

	n.log.Infof("Broadcasting REGISTER_PROPOSAL to %d peer seed(s) req_id=%s", n.SeedChannelCount(), reqID)
	n.broadcastToSeeds(wire.Message{
		Type:     wire.TypeRegisterProposal,
		ReqID:    reqID,
		PeerIP:   peer.IP,
		PeerPort: peer.Port,
		Proposer: n.Self.String(),
	})

	n.checkRegQuorum(reqID)
	go n.regTimeout(reqID)
}

func (n *Node) rememberRegistrant(peer wire.Endpoint, conn *wire.Conn) {
	n.regMu.Lock()
	n.registrants[peer] = conn
	n.regMu.Unlock()
}

// onRegisterProposal: a non-proposer seed always votes YES (trusted
// network, spec.md §1 Non-goals) and replies on the same socket.
func (n *Node) onRegisterProposal(msg wire.Message, conn *wire.Conn) {
	peer := wire.Endpoint{IP: msg.PeerIP, Port: msg.PeerPort}
	n.log.Infof("REGISTER_PROPOSAL req_id=%s peer=%s from=%s -> YES", msg.ReqID, peer, msg.Proposer)
	conn.Send(wire.Message{
		Type:  wire.TypeRegisterVote,
		ReqID: msg.ReqID,
		Voter: n.Self.String(),
		Vote:  true,
	})
}

func (n *Node) onRegisterVote(msg wire.Message) {
	n.log.Infof("REGISTER_VOTE req_id=%s voter=%s vote=%v", msg.ReqID, msg.Voter, msg.Vote)
	n.prMu.Lock()
	entry, ok := n.pendingReg[msg.ReqID]
	if !ok || entry.Decided {
		n.prMu.Unlock()
		return
	}
	entry.Votes[msg.Voter] = msg.Vote
	n.prMu.Unlock()
	n.checkRegQuorum(msg.ReqID)
}

// checkRegQuorum counts the current vote tally and, if quorum or
// rejection is reached, flips Decided exactly once (double-checked
// under the pending-registration lock) and performs the commit or
// rejection outside the lock.
func (n *Node) checkRegQuorum(reqID string) {
	n.prMu.Lock()
	entry, ok := n.pendingReg[reqID]
	if !ok || entry.Decided {
		n.prMu.Unlock()
		return
	}
	yes, no := tally(entry.Votes)
	nSeeds := len(n.AllSeeds)
	switch {
	case yes >= n.Quorum:
		entry.Decided = true
	case no > nSeeds-n.Quorum:
		entry.Decided = true
		conn := entry.RequesterConn
		n.prMu.Unlock()
		n.log.Infof("Registration REJECTED req_id=%s", reqID)
		conn.Send(wire.Message{Type: wire.TypeRegisterResponse, Status: "rejected"})
		return
	default:
		n.prMu.Unlock()
		return
	}
	peer := entry.Peer
	conn := entry.RequesterConn
	n.prMu.Unlock()

	n.plMu.Lock()
	n.peerList[peer] = &member{Degree: 0, RegisteredAt: time.Now()}
	size := len(n.peerList)
	n.plMu.Unlock()
	n.metrics.RegistrationsTotal.Inc()
	n.metrics.PeerListSize.Set(float64(size))

	n.log.Infof("Peer %s REGISTERED yes=%d PL_size=%d", peer, yes, size)
	n.rememberRegistrant(peer, conn)
	conn.Send(wire.Message{
		Type:     wire.TypeRegisterResponse,
		Status:   "ok",
		PeerList: n.peerListExcluding(peer),
	})
}

func tally(votes map[string]bool) (yes, no int) {
	for _, v := range votes {
		if v {
			yes++
		} else {
			no++
		}
	}
	return
}

// regTimeoutDelay is the REGISTER_REQUEST quorum wait before giving up
// (spec.md §4.3). Package-level so tests can shrink it.
var regTimeoutDelay = 10 * time.Second

func (n *Node) regTimeout(reqID string) {
	time.Sleep(regTimeoutDelay)
	n.prMu.Lock()
	entry, ok := n.pendingReg[reqID]
	if !ok || entry.Decided {
		n.prMu.Unlock()
		return
	}
	entry.Decided = true
	conn := entry.RequesterConn
	n.prMu.Unlock()
	n.log.Infof("Registration TIMEOUT req_id=%s", reqID)
	conn.Send(wire.Message{Type: wire.TypeRegisterResponse, Status: "timeout"})
}

// onPeerListRequest serves the retained-for-tooling handler (spec.md
// §9 Open Questions: never issued by the core peer bootstrap path).
func (n *Node) onPeerListRequest(msg wire.Message, conn *wire.Conn) {
	requester := wire.Endpoint{IP: msg.IP, Port: msg.Port}
	n.log.Infof("PEER_LIST_REQUEST from %s", requester)
	conn.Send(wire.Message{
		Type:     wire.TypePeerListResponse,
		PeerList: n.peerListExcluding(requester),
	})
}
