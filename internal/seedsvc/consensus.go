package seedsvc

import (
	"time"

	"meshgossip/internal/wire"
)

// onDeadReport handles a DEAD_REPORT from a peer. Reports are
// deduplicated per (dead endpoint, reporter) so a flapping neighbour
// set cannot spawn duplicate removal votes, mirroring
// original_source/seed.py's _on_dead_report.
func (n *Node) onDeadReport(msg wire.Message) {
	dead := wire.Endpoint{IP: msg.DeadIP, Port: msg.DeadPort}

	n.drMu.Lock()
	reporters, ok := n.deadReports[dead]
	if !ok {
		reporters = make(map[string]bool)
		n.deadReports[dead] = reporters
	}
	if reporters[msg.Reporter] {
		n.drMu.Unlock()
		return
	}
	reporters[msg.Reporter] = true
	n.drMu.Unlock()

	n.plMu.Lock()
	_, stillMember := n.peerList[dead]
	n.plMu.Unlock()
	if !stillMember {
		n.log.Infof("DEAD_REPORT %s from %s ignored — already removed", dead, msg.Reporter)
		return
	}

	reqID := newReqID("rem", n.Self, time.Now())
	n.log.Infof("DEAD_REPORT %s from %s -> proposing removal req_id=%s", dead, msg.Reporter, reqID)

	n.premMu.Lock()
	n.pendingRem[reqID] = &pendingVote{
		Peer:  dead,
		Votes: map[string]bool{n.Self.String(): true},
	}
	n.premMu.Unlock()

	n.broadcastToSeeds(wire.Message{
		Type:     wire.TypeDeadProposal,
		ReqID:    reqID,
		DeadIP:   dead.IP,
		DeadPort: dead.Port,
		Proposer: n.Self.String(),
	})

	n.checkRemQuorum(reqID)
	go n.remTimeout(reqID)
}

// onDeadProposal: trusted-network always-YES vote, same as registration.
func (n *Node) onDeadProposal(msg wire.Message, conn *wire.Conn) {
	dead := wire.Endpoint{IP: msg.DeadIP, Port: msg.DeadPort}
	n.log.Infof("DEAD_PROPOSAL req_id=%s dead=%s from=%s -> YES", msg.ReqID, dead, msg.Proposer)
	conn.Send(wire.Message{
		Type:  wire.TypeDeadVote,
		ReqID: msg.ReqID,
		Voter: n.Self.String(),
		Vote:  true,
	})
}

func (n *Node) onDeadVote(msg wire.Message) {
	n.log.Infof("DEAD_VOTE req_id=%s voter=%s vote=%v", msg.ReqID, msg.Voter, msg.Vote)
	n.premMu.Lock()
	entry, ok := n.pendingRem[msg.ReqID]
	if !ok || entry.Decided {
		n.premMu.Unlock()
		return
	}
	entry.Votes[msg.Voter] = msg.Vote
	n.premMu.Unlock()
	n.checkRemQuorum(msg.ReqID)
}

// checkRemQuorum commits the removal once quorum YES votes are in,
// evicting the peer from peerList and fanning DEAD_CONFIRMED out to
// both the seed mesh and every live registration socket — the gap
// closed relative to original_source/seed.py, documented in
// SPEC_FULL.md §1.1.
func (n *Node) checkRemQuorum(reqID string) {
	n.premMu.Lock()
	entry, ok := n.pendingRem[reqID]
	if !ok || entry.Decided {
		n.premMu.Unlock()
		return
	}
	yes, no := tally(entry.Votes)
	nSeeds := len(n.AllSeeds)
	if yes < n.Quorum {
		if no > nSeeds-n.Quorum {
			entry.Decided = true
		}
		n.premMu.Unlock()
		return
	}
	entry.Decided = true
	dead := entry.Peer
	n.premMu.Unlock()

	n.commitRemoval(dead)
}

func (n *Node) commitRemoval(dead wire.Endpoint) {
	n.plMu.Lock()
	_, existed := n.peerList[dead]
	delete(n.peerList, dead)
	size := len(n.peerList)
	n.plMu.Unlock()
	if !existed {
		return
	}

	n.drMu.Lock()
	delete(n.deadReports, dead)
	n.drMu.Unlock()

	n.regMu.Lock()
	delete(n.registrants, dead)
	n.regMu.Unlock()

	n.metrics.RemovalsTotal.Inc()
	n.metrics.DeadConfirmedTotal.Inc()
	n.metrics.PeerListSize.Set(float64(size))
	n.log.Infof("Peer %s REMOVED, PL_size=%d", dead, size)

	confirm := wire.Message{
		Type:     wire.TypeDeadConfirmed,
		DeadIP:   dead.IP,
		DeadPort: dead.Port,
	}
	n.broadcastToSeeds(confirm)
	n.broadcastToRegistrants(confirm)
}

func (n *Node) remTimeout(reqID string) {
	time.Sleep(10 * time.Second)
	n.premMu.Lock()
	entry, ok := n.pendingRem[reqID]
	if !ok || entry.Decided {
		n.premMu.Unlock()
		return
	}
	entry.Decided = true
	dead := entry.Peer
	n.premMu.Unlock()
	n.log.Infof("Removal TIMEOUT req_id=%s dead=%s — dropping proposal", reqID, dead)
}

// onDeadConfirmedFromPeerSeed handles passive sync: another seed
// committed the removal first and fanned DEAD_CONFIRMED across the
// seed mesh. Idempotent — a peer already absent from peerList is a
// no-op.
func (n *Node) onDeadConfirmedFromPeerSeed(msg wire.Message) {
	dead := wire.Endpoint{IP: msg.DeadIP, Port: msg.DeadPort}
	n.commitRemoval(dead)
}
