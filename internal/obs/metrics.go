package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{Name: "signaling_active_connections", Help: "Currently registered WebSocket connections"})
	OnlineHosts       = promauto.NewGauge(prometheus.GaugeOpts{Name: "signaling_online_hosts", Help: "Hosts currently indexed as online"})
	CallRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "signaling_call_requests_total", Help: "Call requests received"})
	CallsEndedTotal   = promauto.NewCounterVec(prometheus.CounterOpts{Name: "signaling_calls_ended_total", Help: "Terminated call sessions by outcome"}, []string{"outcome"})
	RelayedTotal      = promauto.NewCounterVec(prometheus.CounterOpts{Name: "signaling_relayed_total", Help: "Negotiation messages relayed to the peer"}, []string{"type"})
	RelayDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "signaling_relay_dropped_total", Help: "Negotiation messages dropped for lack of a live peer"})
	StatusFanoutTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "signaling_status_fanout_total", Help: "status_update messages pushed to subscribers"})
	HeartbeatReaps    = promauto.NewCounter(prometheus.CounterOpts{Name: "signaling_heartbeat_reaps_total", Help: "Connections reclaimed by the heartbeat monitor"})
)
