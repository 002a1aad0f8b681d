package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostnet_submissions_total",
		Help: "Submitted instructions by action kind",
	}, []string{"kind"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostnet_rejections_total",
		Help: "Instructions declined by the program or transport",
	}, []string{"kind"})
)
