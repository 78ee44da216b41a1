// Package metrics provides a prometheus-backed recorder for transport and
// poller observations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
)

// PrometheusRecorder implements dbtmcp.MetricsRecorder on prometheus
// collectors.
type PrometheusRecorder struct {
	exchangesTotal   prometheus.Counter
	exchangeErrors   prometheus.Counter
	exchangeDuration prometheus.Histogram
	pollAttempts     prometheus.Counter
}

var _ dbtmcp.MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates a recorder with the given namespace and
// registers its collectors with reg. Pass prometheus.DefaultRegisterer for
// the process-global registry.
func NewPrometheusRecorder(namespace string, reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		exchangesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Total number of outbound HTTP exchanges.",
		}),
		exchangeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_errors_total",
			Help:      "Total number of exchanges that ended in a transport or decode error.",
		}),
		exchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Wall-clock duration of one exchange, including stream consumption.",
			Buckets:   prometheus.DefBuckets,
		}),
		pollAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Total number of job status polls.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.exchangesTotal, r.exchangeErrors, r.exchangeDuration, r.pollAttempts)
	}
	return r
}

func (r *PrometheusRecorder) IncExchanges() { r.exchangesTotal.Inc() }

func (r *PrometheusRecorder) IncExchangeErrors() { r.exchangeErrors.Inc() }

func (r *PrometheusRecorder) ObserveExchangeDuration(d time.Duration) {
	r.exchangeDuration.Observe(d.Seconds())
}

func (r *PrometheusRecorder) IncPollAttempts() { r.pollAttempts.Inc() }
