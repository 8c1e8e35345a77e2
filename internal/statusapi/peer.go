package statusapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meshgossip/internal/peersvc"
)

// PeerHandler serves a peer node's status surface.
type PeerHandler struct {
	node *peersvc.Node
}

// NewPeerRouter builds a gin engine exposing /status, /neighbours,
// /gossip, /ws and /metrics for a peer node.
func NewPeerRouter(n *peersvc.Node) *gin.Engine {
	h := &PeerHandler{node: n}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", h.getStatus)
	r.GET("/neighbours", h.getNeighbours)
	r.GET("/gossip", h.getGossip)
	r.GET("/ws", h.webSocket)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(n.Metrics().Registry, promhttp.HandlerOpts{})))
	return r
}

func (h *PeerHandler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"self":            h.node.Self.String(),
		"neighbour_count": h.node.NeighbourCount(),
		"gossip_seen":     h.node.GossipSeen(),
		"timestamp":       time.Now().Unix(),
	})
}

func (h *PeerHandler) getNeighbours(c *gin.Context) {
	endpoints := h.node.NeighbourEndpoints()
	out := make([]string, len(endpoints))
	for i, ep := range endpoints {
		out[i] = ep.String()
	}
	c.JSON(http.StatusOK, gin.H{"neighbours": out})
}

func (h *PeerHandler) getGossip(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"gossip_seen": h.node.GossipSeen()})
}

func (h *PeerHandler) webSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	snapshot := func() map[string]interface{} {
		endpoints := h.node.NeighbourEndpoints()
		names := make([]string, len(endpoints))
		for i, ep := range endpoints {
			names[i] = ep.String()
		}
		return map[string]interface{}{
			"type":            "snapshot",
			"timestamp":       time.Now().Unix(),
			"self":            h.node.Self.String(),
			"neighbours":      names,
			"gossip_seen":     h.node.GossipSeen(),
		}
	}

	if err := conn.WriteJSON(snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteJSON(snapshot()); err != nil {
			return
		}
	}
}
