package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapgw_upstream_requests_total",
			Help: "Upstream exchange API calls by operation and outcome",
		},
		[]string{"op", "outcome"}, // currencies|providers|rates|trade , ok|rate_limited|error
	)

	SyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapgw_syncs_total",
			Help: "Reference-data sync runs by collection and outcome",
		},
		[]string{"collection", "outcome"}, // currencies|providers , ok|error
	)

	QuoteCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapgw_quote_cache_total",
			Help: "Quote cache lookups by result",
		},
		[]string{"result"}, // hit|miss
	)

	SwapsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swapgw_swaps_created_total",
			Help: "Swaps successfully created",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		UpstreamRequestsTotal,
		SyncsTotal,
		QuoteCacheTotal,
		SwapsCreatedTotal,
	)
}
