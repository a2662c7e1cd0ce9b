package asl

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetricsRecordersDoNotPanic(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.recordStep("Greet", string(StateTypeTask), "next", 5*time.Millisecond)
	m.recordRetry("Greet", CodeTaskFailed)
	m.recordMapParallelFailure("Iterate", CodeMapFailed)
	m.recordApproval("Review", "approved")
	m.recordUsage(100, 0.01)
	m.setInflight(3)
}

func TestNilMetricsRecordersAreNoops(t *testing.T) {
	var m *Metrics
	m.recordStep("Greet", string(StateTypeTask), "next", time.Millisecond)
	m.recordRetry("Greet", CodeTaskFailed)
	m.recordMapParallelFailure("Iterate", CodeMapFailed)
	m.recordApproval("Review", "approved")
	m.recordUsage(1, 0.1)
	m.setInflight(1)
}
