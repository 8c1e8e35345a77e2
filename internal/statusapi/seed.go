// Package statusapi exposes the read-only HTTP/WebSocket debug surface
// described in SPEC_FULL.md §11, grounded on the gin router and
// gorilla/websocket ticker-loop pattern of
// AryanBagade-dynamoDB/internal/api/handler.go's WebSocketHandler.
package statusapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meshgossip/internal/seedsvc"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SeedHandler serves a seed node's status surface.
type SeedHandler struct {
	node *seedsvc.Node
}

// NewSeedRouter builds a gin engine exposing /status, /peers, /ws and
// /metrics for a seed node.
func NewSeedRouter(n *seedsvc.Node) *gin.Engine {
	h := &SeedHandler{node: n}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", h.getStatus)
	r.GET("/peers", h.getPeers)
	r.GET("/ws", h.webSocket)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(n.Metrics().Registry, promhttp.HandlerOpts{})))
	return r
}

func (h *SeedHandler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"self":            h.node.Self.String(),
		"peer_list_size":  h.node.PeerListSize(),
		"connected_seeds": h.node.SeedChannelCount(),
		"timestamp":       time.Now().Unix(),
	})
}

func (h *SeedHandler) getPeers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"peer_list": h.node.PeerListSnapshot()})
}

func (h *SeedHandler) webSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	snapshot := func() map[string]interface{} {
		return map[string]interface{}{
			"type":            "snapshot",
			"timestamp":       time.Now().Unix(),
			"self":            h.node.Self.String(),
			"peer_list":       h.node.PeerListSnapshot(),
			"connected_seeds": h.node.SeedChannelCount(),
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
