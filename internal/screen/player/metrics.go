package player

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	checkpointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "player_checkpoints_total",
		Help: "Number of playback positions handed to the position writer.",
	})
	completedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "player_completed_total",
		Help: "Number of files watched to completion.",
	})
	seeksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "player_seeks_total",
		Help: "Number of seeks, differentiated by direction.",
	}, []string{"direction"})
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "player_sessions_active",
		Help: "Number of running player sessions.",
	})
)
