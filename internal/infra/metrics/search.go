package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(searchCallsTotal) }

var searchCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_provider_calls_total",
		Help: "Search provider calls, labeled by provider and outcome.",
	},
	[]string{"provider", "result"}, // result: 'success', 'error'
)

func IncSearchCall(provider, result string) {
	searchCallsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}
