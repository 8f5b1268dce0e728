// Package metrics exposes Prometheus metrics for the upload pipeline and the
// archive lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "image_optimizer"

// Collector holds the metric vectors on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry

	Uploads          *prometheus.CounterVec
	Downloads        *prometheus.CounterVec
	Reaped           prometheus.Counter
	SweepErrors      prometheus.Counter
	PipelineDuration *prometheus.HistogramVec
	ArchiveBytes     prometheus.Histogram
}

// New creates a Collector with its own registry, including Go runtime collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads by outcome (ok, rejected, failed).",
		}, []string{"outcome"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download attempts by outcome (ok, not_found, failed).",
		}, []string{"outcome"}),
		Reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_reaped_total",
			Help:      "Archives deleted by the reaper because nobody downloaded them.",
		}),
		SweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Reaper sweeps that ended with an error.",
		}),
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent transcoding and archiving one upload.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"source"}),
		ArchiveBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_size_bytes",
			Help:      "Size of produced archives.",
			Buckets:   prometheus.ExponentialBuckets(64<<10, 2, 10),
		}),
	}

	reg.MustRegister(
		c.Uploads,
		c.Downloads,
		c.Reaped,
		c.SweepErrors,
		c.PipelineDuration,
		c.ArchiveBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
