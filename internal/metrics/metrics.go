// Package metrics exports upload manager metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "upload"

// Collector records scheduler and task outcome metrics.
// A nil *Collector is valid and records nothing.
type Collector struct {
	queued    prometheus.Gauge
	active    prometheus.Gauge
	completed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewCollector registers the upload metrics with reg. Collectors that are
// already registered under the same names are reused, so several managers
// can share one registry.
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_queued",
			Help:      "Number of upload tasks waiting for a slot.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_active",
			Help:      "Number of upload tasks currently holding a slot.",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Count of upload tasks that reached a terminal status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time from admission to terminal status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}

	var err error
	if c.queued, err = register(reg, c.queued); err != nil {
		return nil, fmt.Errorf("register queued gauge: %w", err)
	}
	if c.active, err = register(reg, c.active); err != nil {
		return nil, fmt.Errorf("register active gauge: %w", err)
	}
	if c.completed, err = register(reg, c.completed); err != nil {
		return nil, fmt.Errorf("register completed counter: %w", err)
	}
	if c.duration, err = register(reg, c.duration); err != nil {
		return nil, fmt.Errorf("register duration histogram: %w", err)
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// SetQueued records the current queue length.
func (c *Collector) SetQueued(n int) {
	if c == nil {
		return
	}
	c.queued.Set(float64(n))
}

// SetActive records the current number of occupied slots.
func (c *Collector) SetActive(n int) {
	if c == nil {
		return
	}
	c.active.Set(float64(n))
}

// ObserveCompletion records a task reaching a terminal status.
func (c *Collector) ObserveCompletion(status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.completed.WithLabelValues(status).Inc()
	c.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}
