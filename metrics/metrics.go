// Package metrics implements gridcache.Hooks with Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/gridcache"
)

const (
	namespace = "gridcache"
	subsystem = "cache"
)

// Hooks counts cache events per cache name.
type Hooks struct {
	lookups         *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	failures        *prometheus.CounterVec
	resolved        *prometheus.CounterVec
	managersCreated prometheus.Counter
	stopFailures    prometheus.Counter
}

var _ gridcache.Hooks = (*Hooks)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lookups_total",
			Help:      "Total number of cache reads by result",
		}, []string{"cache", "result"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "set_rejected_total",
			Help:      "Total number of writes the store declined",
		}, []string{"cache"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_failures_total",
			Help:      "Total number of failed cache operations",
		}, []string{"cache", "op"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resolved_total",
			Help:      "Total number of caches resolved by name",
		}, []string{"cache", "created"}),
		managersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "created_total",
			Help:      "Total number of managers built from a config resource",
		}),
		stopFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "stop_failures_total",
			Help:      "Total number of owned managers that failed to stop cleanly",
		}),
	}

	for _, c := range []prometheus.Collector{
		h.lookups, h.rejected, h.failures, h.resolved, h.managersCreated, h.stopFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) ManagerCreated(string) { h.managersCreated.Inc() }

func (h *Hooks) ManagerStopFailed(error) { h.stopFailures.Inc() }

func (h *Hooks) CacheResolved(cache string, created bool) {
	label := "false"
	if created {
		label = "true"
	}
	h.resolved.WithLabelValues(cache, label).Inc()
}

func (h *Hooks) Lookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	h.lookups.WithLabelValues(cache, result).Inc()
}

func (h *Hooks) SetRejected(cache string) { h.rejected.WithLabelValues(cache).Inc() }

func (h *Hooks) OperationFailed(cache, op string, _ error) {
	h.failures.WithLabelValues(cache, op).Inc()
}
