// Package metrics exposes Prometheus collectors for the observability
// surface described in SPEC_FULL.md §11. Grounded on the direct
// prometheus/client_golang dependency of NikeGunn-tutu and
// shurlinet-shurli, and the indirect prometheus/common usage in
// chaitanyaphalak-go-mcast.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set bundles every collector one node process registers. Seed and
// peer processes each construct their own Set against their own
// *prometheus.Registry so two nodes in the same test binary never
// collide on global registration.
type Set struct {
	Registry *prometheus.Registry

	PeerListSize         prometheus.Gauge
	RegistrationsTotal   prometheus.Counter
	RemovalsTotal        prometheus.Counter
	GossipOriginatedTotal prometheus.Counter
	GossipForwardedTotal prometheus.Counter
	GossipDuplicateTotal prometheus.Counter
	MissedPingTotal      prometheus.Counter
	SuspicionsActive     prometheus.Gauge
	DeadConfirmedTotal   prometheus.Counter
	NeighbourCount       prometheus.Gauge
}

// NewSet builds and registers a fresh collector set.
func NewSet() *Set {
	reg := prometheus.NewRegistry()
	s := &Set{
		Registry: reg,
		PeerListSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mesh_peer_list_size",
			Help: "Number of peers the local seed considers registered.",
		}),
		RegistrationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesh_registrations_total",
			Help: "Total committed peer registrations.",
		}),
		RemovalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesh_removals_total",
			Help: "Total committed peer removals.",
		}),
		GossipOriginatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesh_gossip_originated_total",
			Help: "Gossip messages originated by this peer.",
		}),
		GossipForwardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesh_gossip_forwarded_total",
			Help: "Gossip messages forwarded after first-seen processing.",
		}),
		GossipDuplicateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesh_gossip_duplicate_total",
			Help: "Gossip messages dropped as already-seen.",
		}),
		MissedPingTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesh_missed_ping_total",
			Help: "Missed-ping events across all neighbours.",
		}),
		SuspicionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mesh_suspicions_active",
			Help: "Currently open peer-level suspicions.",
		}),
		DeadConfirmedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mesh_dead_confirmed_total",
			Help: "DEAD_CONFIRMED events processed.",
		}),
		NeighbourCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mesh_neighbour_count",
			Help: "Current neighbour set size.",
		}),
	}
	reg.MustRegister(
		s.PeerListSize, s.RegistrationsTotal, s.RemovalsTotal,
		s.GossipOriginatedTotal, s.GossipForwardedTotal, s.GossipDuplicateTotal,
		s.MissedPingTotal, s.SuspicionsActive, s.DeadConfirmedTotal, s.NeighbourCount,
	)
	return s
}
