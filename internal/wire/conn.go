package wire

import (
	"net"
	"sync"
)

// Conn wraps a net.Conn with a write mutex so concurrent senders never
// interleave partial frames on the same socket, and exposes Send/Recv
// in terms of Message instead of raw bytes.
type Conn struct {
	net.Conn

	mu sync.Mutex
}

// NewConn wraps an already-established socket.
func NewConn(c net.Conn) *Conn {
	return &Conn{Conn: c}
}

// Send writes one frame. Safe for concurrent use.
func (c *Conn) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Write(c.Conn, msg) == nil
}

// Recv blocks for exactly one frame. A zero Message and false means the
// connection closed or framing broke — callers must treat this as a
// terminal condition for the connection, per spec: any short read or
// decode error closes it.
func (c *Conn) Recv() (Message, bool) {
	msg, err := Read(c.Conn)
	if err != nil {
		return Message{}, false
	}
	return msg, true
}
