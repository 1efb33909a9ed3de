package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_generations_total",
			Help: "Total number of generation requests by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)
	LLMLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeagent_llm_request_seconds",
			Help:    "Latency of model calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	FilesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeagent_files_written_total",
			Help: "Total number of files written by persistence mode",
		},
		[]string{"mode"},
	)
	QuotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codeagent_quota_rejections_total",
			Help: "Requests rejected because the session's free uses ran out",
		},
	)
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
