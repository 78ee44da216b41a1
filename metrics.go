package dbtmcp

import "time"

// MetricsRecorder receives transport and poller observations. The metrics
// package provides a prometheus-backed implementation; the default recorder
// discards everything.
type MetricsRecorder interface {
	// IncExchanges counts one outbound HTTP exchange.
	IncExchanges()
	// IncExchangeErrors counts one exchange that ended in a transport or
	// decode error.
	IncExchangeErrors()
	// ObserveExchangeDuration records the wall-clock time of one exchange,
	// including SSE stream consumption.
	ObserveExchangeDuration(d time.Duration)
	// IncPollAttempts counts one job status poll.
	IncPollAttempts()
}

type nopMetricsRecorder struct{}

func (nopMetricsRecorder) IncExchanges()                         {}
func (nopMetricsRecorder) IncExchangeErrors()                    {}
func (nopMetricsRecorder) ObserveExchangeDuration(time.Duration) {}
func (nopMetricsRecorder) IncPollAttempts()                      {}
