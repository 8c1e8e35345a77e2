package peersvc

import (
	"time"

	"meshgossip/internal/netconf"
	"meshgossip/internal/probe"
	"meshgossip/internal/wire"
)

// startSuspicion opens a new suspicion for suspect, self-votes, and
// asks every other neighbour to confirm via SUSPECT_REQUEST. A
// suspicion already open for this suspect is left alone.
func (n *Node) startSuspicion(suspect wire.Endpoint) {
	n.suspMu.Lock()
	if _, exists := n.suspected[suspect]; exists {
		n.suspMu.Unlock()
		return
	}
	n.suspected[suspect] = &suspicion{confirmations: map[string]bool{n.Self.String(): true}}
	n.suspMu.Unlock()
	n.metrics.SuspicionsActive.Inc()
	n.log.Infof("SUSPICION started for %s", suspect)

	req := wire.Message{
		Type:          wire.TypeSuspectRequest,
		SuspectIP:     suspect.IP,
		SuspectPort:   suspect.Port,
		RequesterIP:   n.Self.IP,
		RequesterPort: n.Self.Port,
	}

	n.nbrMu.Lock()
	targets := make([]*wire.Conn, 0, len(n.neighbours))
	for ep, c := range n.neighbours {
		if ep != suspect {
			targets = append(targets, c)
		}
	}
	n.nbrMu.Unlock()

	for _, c := range targets {
		c.Send(req)
	}

	go n.suspicionTimeout(suspect)
}

// onSuspectRequest answers with a fast TCP port-knock rather than
// ICMP, which original_source/peer.py notes is unreliable against
// loopback targets during local testing (spec.md §9).
func (n *Node) onSuspectRequest(msg wire.Message, conn *wire.Conn) {
	suspect := wire.Endpoint{IP: msg.SuspectIP, Port: msg.SuspectPort}
	alive := probe.TCPKnock(suspect.IP, suspect.Port)
	n.log.Infof("SUSPECT_REQUEST for %s -> alive=%v", suspect, alive)
	conn.Send(wire.Message{
		Type:          wire.TypeSuspectResponse,
		SuspectIP:     suspect.IP,
		SuspectPort:   suspect.Port,
		Alive:         alive,
		ResponderIP:   n.Self.IP,
		ResponderPort: n.Self.Port,
	})
}

// onSuspectResponse records a confirmation (alive=false) and reports
// the suspect dead once confirmations reach peer-quorum. The
// reported flag is double-checked under the lock so concurrent
// responses cannot both trigger a report.
func (n *Node) onSuspectResponse(msg wire.Message) {
	suspect := wire.Endpoint{IP: msg.SuspectIP, Port: msg.SuspectPort}
	responder := wire.Endpoint{IP: msg.ResponderIP, Port: msg.ResponderPort}.String()

	n.suspMu.Lock()
	entry, ok := n.suspected[suspect]
	if !ok || entry.reported {
		n.suspMu.Unlock()
		return
	}
	if !msg.Alive {
		entry.confirmations[responder] = true
	}
	count := len(entry.confirmations)
	n.suspMu.Unlock()

	n.log.Infof("SUSPECT_RESPONSE from %s for %s alive=%v confirms=%d", responder, suspect, msg.Alive, count)

	peerQuorum := netconf.Quorum(n.NeighbourCount())
	if count < peerQuorum {
		return
	}

	n.suspMu.Lock()
	entry, ok = n.suspected[suspect]
	if !ok || entry.reported {
		n.suspMu.Unlock()
		return
	}
	entry.reported = true
	n.suspMu.Unlock()

	n.reportDead(suspect)
}

func (n *Node) suspicionTimeout(suspect wire.Endpoint) {
	time.Sleep(suspectTimeout)
	n.suspMu.Lock()
	defer n.suspMu.Unlock()
	entry, ok := n.suspected[suspect]
	if ok && !entry.reported {
		n.log.Infof("Suspicion TIMEOUT for %s — no peer quorum, cancelling", suspect)
		delete(n.suspected, suspect)
		n.metrics.SuspicionsActive.Dec()
	}
}

// reportDead fans DEAD_REPORT out to every connected seed.
func (n *Node) reportDead(dead wire.Endpoint) {
	n.log.Infof("DEAD_REPORT: dead node %s", dead)
	msg := wire.Message{
		Type:      wire.TypeDeadReport,
		DeadIP:    dead.IP,
		DeadPort:  dead.Port,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Reporter:  n.Self.String(),
	}

	n.seedMu.Lock()
	targets := make([]*wire.Conn, 0, len(n.seedConns))
	for _, c := range n.seedConns {
		targets = append(targets, c)
	}
	n.seedMu.Unlock()

	for _, c := range targets {
		c.Send(msg)
	}
}

// onDeadConfirmed evicts a confirmed-dead peer from every piece of
// local state, idempotently.
func (n *Node) onDeadConfirmed(dead wire.Endpoint) {
	n.log.Infof("DEAD_CONFIRMED for %s — removing from neighbours", dead)

	n.nbrMu.Lock()
	conn, existed := n.neighbours[dead]
	delete(n.neighbours, dead)
	n.nbrMu.Unlock()
	n.reportNeighbourCount()
	if existed && conn != nil {
		conn.Close()
	}

	n.suspMu.Lock()
	if _, ok := n.suspected[dead]; ok {
		delete(n.suspected, dead)
		n.metrics.SuspicionsActive.Dec()
	}
	n.suspMu.Unlock()

	n.mpMu.Lock()
	delete(n.missedPings, dead)
	n.mpMu.Unlock()
}
