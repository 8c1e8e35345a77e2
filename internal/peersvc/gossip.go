package peersvc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"meshgossip/internal/wire"
)

// gossipLoop originates one gossip message every gossipInterval, up
// to maxGossip total, then stops originating (the peer keeps
// forwarding others' gossip indefinitely via onGossip).
func (n *Node) gossipLoop() {
	time.Sleep(2 * time.Second) // allow neighbour connections to stabilise

	for {
		n.gcMu.Lock()
		if n.gossipCount >= maxGossip {
			n.gcMu.Unlock()
			return
		}
		n.gossipCount++
		seq := n.gossipCount
		n.gcMu.Unlock()

		content := fmt.Sprintf("%.6f:%s:%d", float64(time.Now().UnixNano())/1e9, n.Self.IP, seq)
		hash := contentHash(content)

		n.log.Infof("Generated gossip #%d: %s", seq, content)
		n.mlMu.Lock()
		n.ml[hash] = true
		n.mlMu.Unlock()
		n.metrics.GossipOriginatedTotal.Inc()

		n.broadcast(wire.Message{
			Type:       wire.TypeGossip,
			Content:    content,
			Hash:       hash,
			OriginIP:   n.Self.IP,
			OriginPort: n.Self.Port,
		}, nil)

		time.Sleep(gossipInterval)
	}
}

// onGossip delivers a received gossip message at most once per
// content hash, then floods it to every neighbour but the sender.
func (n *Node) onGossip(msg wire.Message, sender *wire.Conn) {
	hash := msg.Hash
	if hash == "" {
		hash = contentHash(msg.Content)
	}

	n.mlMu.Lock()
	if n.ml[hash] {
		n.mlMu.Unlock()
		n.metrics.GossipDuplicateTotal.Inc()
		return
	}
	n.ml[hash] = true
	n.mlMu.Unlock()

	n.log.Infof("GOSSIP (first time): %q from %s:%d", msg.Content, msg.OriginIP, msg.OriginPort)
	n.metrics.GossipForwardedTotal.Inc()

	fwd := msg
	fwd.SenderIP = n.Self.IP
	fwd.SenderPort = n.Self.Port
	n.broadcast(fwd, sender)
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
