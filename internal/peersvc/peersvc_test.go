package peersvc

import (
	"math/rand"
	"net"
	"testing"

	"github.com/sirupsen/logrus"

	"meshgossip/internal/wire"
)

func testNode(self wire.Endpoint, seeds []wire.Endpoint) *Node {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return New(self, seeds, log, rand.New(rand.NewSource(1)))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func pipeConns() (*wire.Conn, *wire.Conn) {
	a, b := net.Pipe()
	return wire.NewConn(a), wire.NewConn(b)
}

func TestOnGossipDedupesByHash(t *testing.T) {
	n := testNode(wire.Endpoint{IP: "127.0.0.1", Port: 9100}, nil)
	a, b := pipeConns()
	defer a.Close()
	defer b.Close()

	n.nbrMu.Lock()
	n.neighbours[wire.Endpoint{IP: "127.0.0.1", Port: 9200}] = a
	n.nbrMu.Unlock()

	msg := wire.Message{Type: wire.TypeGossip, Content: "hello", Hash: contentHash("hello"), OriginIP: "127.0.0.1", OriginPort: 9300}

	done := make(chan struct{})
	go func() {
		n.onGossip(msg, nil)
		close(done)
	}()
	fwd, ok := b.Recv()
	<-done
	if !ok || fwd.Hash != msg.Hash {
		t.Fatalf("expected gossip forwarded to neighbour, got %+v ok=%v", fwd, ok)
	}

	if n.GossipSeen() != 1 {
		t.Fatalf("expected exactly 1 seen hash, got %d", n.GossipSeen())
	}

	// Second delivery of the same hash must not re-forward.
	n.onGossip(msg, nil)
	if n.GossipSeen() != 1 {
		t.Fatalf("duplicate gossip must not grow seen set, got %d", n.GossipSeen())
	}
}

func TestSuspicionReportsDeadAtPeerQuorum(t *testing.T) {
	n := testNode(wire.Endpoint{IP: "127.0.0.1", Port: 9100}, []wire.Endpoint{{IP: "127.0.0.1", Port: 9001}})
	suspect := wire.Endpoint{IP: "127.0.0.1", Port: 9400}

	seedConn, seedOther := pipeConns()
	defer seedConn.Close()
	defer seedOther.Close()
	n.seedMu.Lock()
	n.seedConns[wire.Endpoint{IP: "127.0.0.1", Port: 9001}] = seedConn
	n.seedMu.Unlock()

	// With zero other neighbours, peer-quorum is 1 — the self-vote
	// registered by startSuspicion already satisfies it once a
	// SUSPECT_RESPONSE evaluation runs.
	// reportDead writes on the unbuffered pipe, so the response is
	// evaluated in its own goroutine while this one reads the seed side.
	n.startSuspicion(suspect)
	go n.onSuspectResponse(wire.Message{
		SuspectIP: suspect.IP, SuspectPort: suspect.Port,
		Alive:       false,
		ResponderIP: "127.0.0.1", ResponderPort: 9999,
	})

	msg, ok := seedOther.Recv()
	if !ok {
		t.Fatal("expected a DEAD_REPORT sent to the seed")
	}
	if msg.Type != wire.TypeDeadReport || msg.DeadIP != suspect.IP || msg.DeadPort != suspect.Port {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestDeadConfirmedRemovesNeighbourIdempotently(t *testing.T) {
	n := testNode(wire.Endpoint{IP: "127.0.0.1", Port: 9100}, nil)
	dead := wire.Endpoint{IP: "127.0.0.1", Port: 9500}

	a, _ := pipeConns()
	n.nbrMu.Lock()
	n.neighbours[dead] = a
	n.nbrMu.Unlock()

	n.onDeadConfirmed(dead)
	if n.NeighbourCount() != 0 {
		t.Fatalf("expected neighbour removed, got count %d", n.NeighbourCount())
	}
	n.onDeadConfirmed(dead) // must not panic on an already-absent peer
	if n.NeighbourCount() != 0 {
		t.Fatalf("idempotent removal must leave state unchanged, got count %d", n.NeighbourCount())
	}
}
