package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hubConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grimoire_ws_connections",
		Help: "Number of authenticated websocket connections.",
	})

	hubEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimoire_ws_events_total",
			Help: "Realtime events handled, by event type and outcome.",
		},
		[]string{"event", "status"},
	)

	hintViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grimoire_hint_views_total",
		Help: "Total number of individual hint fetches.",
	})
)
