package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniapi_stats_probe_total",
		Help: "Provider connectivity tests by outcome",
	}, []string{"outcome"})
	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uniapi_stats_probe_duration_seconds",
		Help:    "Wall time of provider connectivity tests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})
)
