package services

import "github.com/prometheus/client_golang/prometheus"

// indexPropagationFailures counts search index writes or deletes that failed
// after the primary store had already committed.
var indexPropagationFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "index_propagation_failures_total",
		Help: "Search index writes that failed after a successful primary store write.",
	},
	[]string{"entity", "op"},
)

func init() {
	prometheus.MustRegister(indexPropagationFailures)
}
