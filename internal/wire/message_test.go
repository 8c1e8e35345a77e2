package wire

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	msg := Message{
		Type:   TypeRegisterRequest,
		IP:     "127.0.0.1",
		Port:   9001,
		PeerList: []PeerListEntry{{IP: "127.0.0.1", Port: 9002, Degree: 3}},
	}

	var buf bytes.Buffer
	if err := Write(&buf, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != msg.Type || got.IP != msg.IP || got.Port != msg.Port {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, msg)
	}
	if len(got.PeerList) != 1 || got.PeerList[0].Degree != 3 {
		t.Fatalf("peer list not preserved: %+v", got.PeerList)
	}
}

func TestReadRejectsOversizedFrame(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := Read(buf); err == nil {
		t.Fatal("expected error for frame exceeding maxPayload")
	}
}

func TestReadShortFrameFails(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 10, 'x'})
	if _, err := Read(buf); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}

func TestEndpointString(t *testing.T) {
	ep := Endpoint{IP: "10.0.0.5", Port: 7000}
	if ep.String() != "10.0.0.5:7000" {
		t.Fatalf("unexpected endpoint string: %s", ep.String())
	}
	if ep.ID() != ep.String() {
		t.Fatalf("ID() should alias String()")
	}
}
