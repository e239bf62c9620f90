package sink

import (
	"github.com/rcrowley/go-metrics"
)

const (
	statCaptured    = "events.captured"
	statDropped     = "events.dropped"
	statSent        = "events.sent"
	statFailed      = "events.failed"
	statBreadcrumbs = "breadcrumbs.added"
	statFlush       = "flush"
)

type stats struct {
	reg metrics.Registry

	captured    metrics.Counter
	dropped     metrics.Counter
	sent        metrics.Counter
	failed      metrics.Counter
	breadcrumbs metrics.Counter
	flush       metrics.Timer
}

func newStats() *stats {
	reg := metrics.NewRegistry()
	return &stats{
		reg:         reg,
		captured:    metrics.NewRegisteredCounter(statCaptured, reg),
		dropped:     metrics.NewRegisteredCounter(statDropped, reg),
		sent:        metrics.NewRegisteredCounter(statSent, reg),
		failed:      metrics.NewRegisteredCounter(statFailed, reg),
		breadcrumbs: metrics.NewRegisteredCounter(statBreadcrumbs, reg),
		flush:       metrics.NewRegisteredTimer(statFlush, reg),
	}
}

// Stats returns a snapshot of the client's counters and timers, keyed by
// metric name.
func (c *Client) Stats() map[string]map[string]interface{} {
	return c.stats.reg.GetAll()
}

// Registry exposes the client's metrics registry, e.g. for periodic
// reporting.
func (c *Client) Registry() metrics.Registry {
	return c.stats.reg
}
