// Package wire implements the framed JSON transport shared by every
// seed-to-seed, peer-to-seed and peer-to-peer socket in the mesh: each
// message is a 4-byte big-endian length prefix followed by that many
// bytes of JSON.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Type enumerates every message kind in the wire protocol catalogue.
type Type string

const (
	TypeSeedHello         Type = "SEED_HELLO"
	TypeRegisterRequest   Type = "REGISTER_REQUEST"
	TypeRegisterProposal  Type = "REGISTER_PROPOSAL"
	TypeRegisterVote      Type = "REGISTER_VOTE"
	TypeRegisterResponse  Type = "REGISTER_RESPONSE"
	TypePeerListRequest   Type = "PEER_LIST_REQUEST"
	TypePeerListResponse  Type = "PEER_LIST_RESPONSE"
	TypeHello             Type = "HELLO"
	TypeGossip            Type = "GOSSIP"
	TypePing              Type = "PING"
	TypePong              Type = "PONG"
	TypeSuspectRequest    Type = "SUSPECT_REQUEST"
	TypeSuspectResponse   Type = "SUSPECT_RESPONSE"
	TypeDeadReport        Type = "DEAD_REPORT"
	TypeDeadProposal      Type = "DEAD_PROPOSAL"
	TypeDeadVote          Type = "DEAD_VOTE"
	TypeDeadConfirmed     Type = "DEAD_CONFIRMED"
)

// PeerListEntry is the wire shape of one row of a peer_list snapshot.
type PeerListEntry struct {
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	Degree int    `json:"degree"`
}

// Message is the untagged union of every field any message type may
// carry. Only the fields relevant to Type are populated on send; the
// zero value of the rest is ignored by receivers, matching the
// original dynamically-typed dict-based protocol.
type Message struct {
	Type Type `json:"type"`

	// Seed mesh / identity.
	SeedID string `json:"seed_id,omitempty"`

	// Endpoint-carrying fields (REGISTER_REQUEST, HELLO, PING, PONG, ...).
	IP   string `json:"ip,omitempty"`
	Port int    `json:"port,omitempty"`

	// Consensus (registration and removal).
	ReqID     string `json:"req_id,omitempty"`
	PeerIP    string `json:"peer_ip,omitempty"`
	PeerPort  int    `json:"peer_port,omitempty"`
	Proposer  string `json:"proposer,omitempty"`
	Voter     string `json:"voter,omitempty"`
	Vote      bool   `json:"vote,omitempty"`
	Status    string `json:"status,omitempty"`

	PeerList []PeerListEntry `json:"peer_list,omitempty"`

	// Dead-node reporting and confirmation.
	DeadIP    string  `json:"dead_ip,omitempty"`
	DeadPort  int     `json:"dead_port,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
	Reporter  string  `json:"reporter,omitempty"`

	// Gossip.
	Content    string `json:"content,omitempty"`
	Hash       string `json:"hash,omitempty"`
	OriginIP   string `json:"origin_ip,omitempty"`
	OriginPort int    `json:"origin_port,omitempty"`
	SenderIP   string `json:"sender_ip,omitempty"`
	SenderPort int    `json:"sender_port,omitempty"`

	// Liveness.
	FromIP   string `json:"from_ip,omitempty"`
	FromPort int    `json:"from_port,omitempty"`

	// Suspicion.
	SuspectIP     string `json:"suspect_ip,omitempty"`
	SuspectPort   int    `json:"suspect_port,omitempty"`
	RequesterIP   string `json:"requester_ip,omitempty"`
	RequesterPort int    `json:"requester_port,omitempty"`
	Alive         bool   `json:"alive,omitempty"`
	ResponderIP   string `json:"responder_ip,omitempty"`
	ResponderPort int    `json:"responder_port,omitempty"`
}

const headerSize = 4
const maxPayload = 16 << 20 // guards against a corrupt length prefix wedging a reader forever

// Write serializes msg and writes it as one atomic length-prefixed frame.
func Write(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[headerSize:], payload)
	_, err = w.Write(frame)
	return err
}

// Read blocks for exactly one frame and decodes it. Any short read or
// decode error is reported so the caller can close the connection —
// framing itself is compatibility-critical and never recovered from.
func Read(r io.Reader) (Message, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxPayload {
		return Message{}, fmt.Errorf("wire: frame of %d bytes exceeds max payload", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
