package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ectows",
		Name:      "connections_active",
		Help:      "Number of open WebSocket connections.",
	})
	metricAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ectows",
		Name:      "connections_accepted_total",
		Help:      "Sockets accepted since start.",
	})
	metricRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ectows",
		Name:      "handshakes_rejected_total",
		Help:      "Handshakes rejected, by reason.",
	}, []string{"reason"})
	metricSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ectows",
		Name:      "sessions_active",
		Help:      "Authenticated sessions, by role.",
	}, []string{"role"})
	metricLogLines = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ectows",
		Name:      "log_lines_total",
		Help:      "Lines appended to the operator log.",
	})
	metricTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ectows",
		Name:      "ticks_total",
		Help:      "Server ticks run.",
	})
)
