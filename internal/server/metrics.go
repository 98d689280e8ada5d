package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helix_optimizations_started_total",
		Help: "Number of optimization jobs accepted.",
	})

	jobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "helix_optimizations_running",
		Help: "Number of optimization jobs currently running.",
	})

	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helix_generations_completed_total",
		Help: "Number of generations evolved across all completed jobs.",
	})
)
