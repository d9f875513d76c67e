package delivery

import (
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "edge_submission_deliveries_total",
	Help: "Submission delivery attempts by kind, sink and outcome.",
}, []string{"kind", "sink", "outcome"})

func observe(kind models.SubmissionKind, sink SinkName, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	deliveries.WithLabelValues(string(kind), string(sink), outcome).Inc()
}
