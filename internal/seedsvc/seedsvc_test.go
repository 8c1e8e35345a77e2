package seedsvc

import (
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"

	"meshgossip/internal/wire"
)

func testNode(t *testing.T, self wire.Endpoint, allSeeds []wire.Endpoint) *Node {
	t.Helper()
	log := logrus.New()
	log.SetOutput(&discard{})
	return New(self, allSeeds, log)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func pipeConns() (*wire.Conn, *wire.Conn) {
	a, b := net.Pipe()
	return wire.NewConn(a), wire.NewConn(b)
}

func TestSingleSeedRegistrationQuorumIsOne(t *testing.T) {
	self := wire.Endpoint{IP: "127.0.0.1", Port: 9001}
	n := testNode(t, self, []wire.Endpoint{self})
	if n.Quorum != 1 {
		t.Fatalf("expected quorum 1 for a single-seed network, got %d", n.Quorum)
	}

	requester, other := pipeConns()
	defer requester.Close()
	defer other.Close()

	peer := wire.Endpoint{IP: "127.0.0.1", Port: 9100}
	go n.onRegisterRequest(wire.Message{IP: peer.IP, Port: peer.Port}, requester)

	resp, ok := other.Recv()
	if !ok {
		t.Fatal("expected a REGISTER_RESPONSE")
	}
	if resp.Type != wire.TypeRegisterResponse || resp.Status != "ok" {
		t.Fatalf("expected committed registration, got %+v", resp)
	}
	if n.PeerListSize() != 1 {
		t.Fatalf("expected peer list size 1, got %d", n.PeerListSize())
	}
}

func TestDuplicateRegisterRequestIsIdempotent(t *testing.T) {
	self := wire.Endpoint{IP: "127.0.0.1", Port: 9001}
	n := testNode(t, self, []wire.Endpoint{self})
	peer := wire.Endpoint{IP: "127.0.0.1", Port: 9100}

	first, firstOther := pipeConns()
	go n.onRegisterRequest(wire.Message{IP: peer.IP, Port: peer.Port}, first)
	if _, ok := firstOther.Recv(); !ok {
		t.Fatal("expected first REGISTER_RESPONSE")
	}
	first.Close()
	firstOther.Close()

	second, secondOther := pipeConns()
	defer second.Close()
	defer secondOther.Close()
	go n.onRegisterRequest(wire.Message{IP: peer.IP, Port: peer.Port}, second)

	resp, ok := secondOther.Recv()
	if !ok || resp.Status != "ok" {
		t.Fatalf("expected immediate ack for already-registered peer, got %+v ok=%v", resp, ok)
	}
	if n.PeerListSize() != 1 {
		t.Fatalf("duplicate registration must not grow peer list, got size %d", n.PeerListSize())
	}
}

func TestRegistrationRejectedOnMajorityNo(t *testing.T) {
	self := wire.Endpoint{IP: "127.0.0.1", Port: 9001}
	s2 := wire.Endpoint{IP: "127.0.0.1", Port: 9002}
	s3 := wire.Endpoint{IP: "127.0.0.1", Port: 9003}
	n := testNode(t, self, []wire.Endpoint{self, s2, s3})
	if n.Quorum != 2 {
		t.Fatalf("expected quorum 2 for 3 seeds, got %d", n.Quorum)
	}

	requester, other := pipeConns()
	defer requester.Close()
	defer other.Close()

	peer := wire.Endpoint{IP: "127.0.0.1", Port: 9100}
	done := make(chan struct{})
	go func() {
		n.onRegisterRequest(wire.Message{IP: peer.IP, Port: peer.Port}, requester)
		close(done)
	}()

	// Give onRegisterRequest a moment to register the pending vote,
	// then synthesize the two other seeds voting NO.
	time.Sleep(20 * time.Millisecond)
	n.prMu.Lock()
	var reqID string
	for id := range n.pendingReg {
		reqID = id
	}
	n.prMu.Unlock()
	if reqID == "" {
		t.Fatal("no pending registration found")
	}

	// The rejecting vote writes REGISTER_RESPONSE on the unbuffered pipe,
	// so the votes are cast from their own goroutine while this one reads.
	go func() {
		n.onRegisterVote(wire.Message{ReqID: reqID, Voter: s2.String(), Vote: false})
		n.onRegisterVote(wire.Message{ReqID: reqID, Voter: s3.String(), Vote: false})
	}()

	resp, ok := other.Recv()
	if !ok {
		t.Fatal("expected a REGISTER_RESPONSE")
	}
	if resp.Status != "rejected" {
		t.Fatalf("expected rejection on majority NO, got %+v", resp)
	}
	if n.PeerListSize() != 0 {
		t.Fatalf("rejected registration must not appear in peer list, got size %d", n.PeerListSize())
	}
	<-done
}

// TestRegisterTimeoutLeavesNoGoroutine drives a REGISTER_REQUEST that
// never reaches quorum or rejection, forcing regTimeout's own goroutine
// to resolve it, and verifies that goroutine exits cleanly once it does
// (spec.md §4.3 registration timeout path). Goroutines already running
// when the test starts (other tests' pending regTimeout sleeps) are
// ignored.
func TestRegisterTimeoutLeavesNoGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	old := regTimeoutDelay
	regTimeoutDelay = 20 * time.Millisecond
	defer func() { regTimeoutDelay = old }()

	self := wire.Endpoint{IP: "127.0.0.1", Port: 9001}
	s2 := wire.Endpoint{IP: "127.0.0.1", Port: 9002}
	s3 := wire.Endpoint{IP: "127.0.0.1", Port: 9003}
	n := testNode(t, self, []wire.Endpoint{self, s2, s3})
	if n.Quorum != 2 {
		t.Fatalf("expected quorum 2 for 3 seeds, got %d", n.Quorum)
	}

	requester, other := pipeConns()
	defer requester.Close()
	defer other.Close()

	peer := wire.Endpoint{IP: "127.0.0.1", Port: 9100}
	go n.onRegisterRequest(wire.Message{IP: peer.IP, Port: peer.Port}, requester)

	resp, ok := other.Recv()
	if !ok {
		t.Fatal("expected a REGISTER_RESPONSE")
	}
	if resp.Status != "timeout" {
		t.Fatalf("expected timeout with no further votes cast, got %+v", resp)
	}
}

func TestDeadConfirmedIsIdempotent(t *testing.T) {
	self := wire.Endpoint{IP: "127.0.0.1", Port: 9001}
	n := testNode(t, self, []wire.Endpoint{self})
	dead := wire.Endpoint{IP: "127.0.0.1", Port: 9200}

	n.plMu.Lock()
	n.peerList[dead] = &member{Degree: 0}
	n.plMu.Unlock()

	n.commitRemoval(dead)
	if n.PeerListSize() != 0 {
		t.Fatalf("expected peer removed, size=%d", n.PeerListSize())
	}
	// Second commit of the same already-absent peer must be a no-op,
	// not a panic or a second increment of the removal counters.
	n.commitRemoval(dead)
	if n.PeerListSize() != 0 {
		t.Fatalf("idempotent removal must leave peer list unchanged, size=%d", n.PeerListSize())
	}
}

func TestDeadConfirmedFansOutToRegistrant(t *testing.T) {
	self := wire.Endpoint{IP: "127.0.0.1", Port: 9001}
	n := testNode(t, self, []wire.Endpoint{self})
	dead := wire.Endpoint{IP: "127.0.0.1", Port: 9300}

	regConn, peerConn := pipeConns()
	defer regConn.Close()
	defer peerConn.Close()

	n.plMu.Lock()
	n.peerList[dead] = &member{Degree: 0}
	n.plMu.Unlock()
	n.rememberRegistrant(dead, regConn)

	go n.commitRemoval(dead)

	msg, ok := peerConn.Recv()
	if !ok {
		t.Fatal("expected DEAD_CONFIRMED to reach the registrant socket")
	}
	if msg.Type != wire.TypeDeadConfirmed || msg.DeadIP != dead.IP || msg.DeadPort != dead.Port {
		t.Fatalf("unexpected fan-out message: %+v", msg)
	}
}
