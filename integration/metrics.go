package integration

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	sourcePanic  = "panic"
	sourceSignal = "signal"

	resultCaptured    = "captured"
	resultFailed      = "failed"
	resultUnsupported = "unsupported"
)

var (
	panicsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crashhook",
		Name:      "panics_total",
		Help:      "Panics reported to the sink, by origin.",
	}, []string{"source"})

	minidumpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crashhook",
		Name:      "minidumps_total",
		Help:      "Minidump capture attempts, by result.",
	}, []string{"result"})
)

// Collectors returns the integration's metrics for registration with a
// prometheus registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{panicsTotal, minidumpsTotal}
}
