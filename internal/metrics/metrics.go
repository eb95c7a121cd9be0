// Package metrics exposes Prometheus instrumentation for the style
// pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the metrics instance.
type Config struct {
	// Namespace is the metrics namespace (default: "vanilla_extract").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for transform duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	TransformsTotal   *prometheus.CounterVec
	TransformDuration *prometheus.HistogramVec
	TransformErrors   *prometheus.CounterVec
	HMRBroadcasts     prometheus.Counter
	Invalidations     prometheus.Counter
	RegistrySize      prometheus.Gauge
	VirtualLoads      *prometheus.CounterVec
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Default returns the process-wide metrics, created on first use against
// the default registerer.
func Default() *Metrics {
	globalOnce.Do(func() {
		global = New(Config{})
	})
	return global
}

// New creates a metrics instance. Tests pass their own Registry so
// collectors do not collide across instances.
func New(config Config) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "vanilla_extract"
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		TransformsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "transforms_total",
			Help:        "Total number of style file transforms",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		TransformDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "transform_duration_seconds",
			Help:        "Style transform duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"}),

		TransformErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "transform_errors_total",
			Help:        "Total number of failed style transforms",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		HMRBroadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "hmr_broadcasts_total",
			Help:        "Total number of style hot-update events broadcast to clients",
			ConstLabels: config.ConstLabels,
		}),

		Invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "module_invalidations_total",
			Help:        "Total number of virtual modules invalidated after CSS changes",
			ConstLabels: config.ConstLabels,
		}),

		RegistrySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "registry_scopes",
			Help:        "Number of style scopes currently registered",
			ConstLabels: config.ConstLabels,
		}),

		VirtualLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "virtual_loads_total",
			Help:        "Total number of virtual module loads",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}
