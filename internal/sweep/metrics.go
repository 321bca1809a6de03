package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pointsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_points_completed_total",
		Help: "Number of sweep points that cleared successfully.",
	})

	pointsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_points_failed_total",
		Help: "Number of sweep points aborted by a clearing failure.",
	})

	pointsPlanned = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_points_planned",
		Help: "Total number of points in the current sweep.",
	})
)
