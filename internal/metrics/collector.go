// Package metrics exports LightX workflow activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imagejobs/internal/lightx"
)

// Collector implements lightx.Observer on Prometheus collectors registered
// with a caller-supplied registerer.
type Collector struct {
	uploadsTotal    *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
	uploadDuration  prometheus.Histogram
	submissions     *prometheus.CounterVec
	pollSteps       *prometheus.CounterVec
	workflowsTotal  *prometheus.CounterVec
	workflowLatency *prometheus.HistogramVec
	pollAttempts    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector registers the workflow metrics under namespace.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		uploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Asset uploads by result.",
		}, []string{"result"}),
		uploadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_size_bytes",
			Help:      "Size of uploaded assets.",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 6),
		}),
		uploadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time to register and transfer one asset.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Job submissions by operation and result.",
		}, []string{"operation", "result"}),
		pollSteps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_steps_total",
			Help:      "Status queries by operation and outcome.",
		}, []string{"operation", "outcome"}),
		workflowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Finished workflows by operation and result.",
		}, []string{"operation", "result"}),
		workflowLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Wall time from first upload to terminal state.",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 60, 120},
		}, []string{"operation"}),
		pollAttempts: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_attempts",
			Help:      "Status queries spent per workflow.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{"operation"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) UploadFinished(size int, elapsed time.Duration, err error) {
	c.uploadsTotal.WithLabelValues(lightx.KindName(err)).Inc()
	if err == nil {
		c.uploadBytes.Observe(float64(size))
		c.uploadDuration.Observe(elapsed.Seconds())
	}
}

func (c *Collector) Submitted(operation string, err error) {
	c.submissions.WithLabelValues(operation, lightx.KindName(err)).Inc()
}

func (c *Collector) PollStep(operation string, kind lightx.OutcomeKind) {
	c.pollSteps.WithLabelValues(operation, kind.String()).Inc()
}

func (c *Collector) Finished(operation string, attempts int, elapsed time.Duration, err error) {
	c.workflowsTotal.WithLabelValues(operation, lightx.KindName(err)).Inc()
	c.workflowLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
	if attempts > 0 {
		c.pollAttempts.WithLabelValues(operation).Observe(float64(attempts))
	}
}

// ObserveHTTP records one served API request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ lightx.Observer = (*Collector)(nil)
