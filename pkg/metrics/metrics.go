// Package metrics tracks the runtime metrics of a tap run using Prometheus
// collectors. Every run owns its own registry, so nothing is registered
// globally and tests can create as many registries as they need.
//
// Two metrics are kept per stream:
//   - an HTTP request timer, observed once per request with its status code
//   - a record counter, incremented once per emitted record
//
// Both are also logged as METRIC lines, the way Singer taps report them.
//
// # Basic Usage
//
//	reg := metrics.NewRegistry(logger)
//
//	timer := reg.HTTPRequestTimer("tasks")
//	resp, err := client.Do(req)
//	timer.Stop(resp.StatusCode, err)
//
//	counter := reg.RecordCounter("tasks")
//	for _, record := range records {
//	    emit(record)
//	    counter.Increment()
//	}
//	counter.Close()
package metrics

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

const (
	// MetricHTTPRequestDuration is the Singer name of the request timer
	MetricHTTPRequestDuration = "http_request_duration"
	// MetricRecordCount is the Singer name of the record counter
	MetricRecordCount = "record_count"
)

// Registry owns the collectors of one run
type Registry struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	recordCount     *prometheus.CounterVec
	logger          *zap.Logger
}

// NewRegistry creates a registry with the tap collectors registered
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		// RequestDuration tracks API request latency in seconds.
		// Labels: endpoint (stream), http_status_code, status (succeeded/failed)
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tap_http_request_duration_seconds",
				Help:    "Duration of Kanbanize API requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"endpoint", "http_status_code", "status"},
		),
		// RecordCount tracks records emitted per stream.
		recordCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tap_record_count_total",
				Help: "Total number of records emitted",
			},
			[]string{"endpoint"},
		),
		logger: logger,
	}
	r.registry.MustRegister(r.requestDuration, r.recordCount)
	return r
}

// WriteTextfile writes all metrics in the textfile-collector format
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// RecordCount returns the current record counter value of a stream
func (r *Registry) RecordCount(endpoint string) float64 {
	m := &dto.Metric{}
	if err := r.recordCount.WithLabelValues(endpoint).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// RequestCount returns how many requests of a stream were timed
func (r *Registry) RequestCount(endpoint string) uint64 {
	metrics, err := r.registry.Gather()
	if err != nil {
		return 0
	}
	var total uint64
	for _, family := range metrics {
		if family.GetName() != "tap_http_request_duration_seconds" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "endpoint" && label.GetValue() == endpoint {
					total += m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return total
}

// HTTPTimer measures one API request
type HTTPTimer struct {
	registry *Registry
	endpoint string
	start    time.Time
}

// HTTPRequestTimer starts timing a request for endpoint
func (r *Registry) HTTPRequestTimer(endpoint string) *HTTPTimer {
	return &HTTPTimer{
		registry: r,
		endpoint: endpoint,
		start:    time.Now(),
	}
}

// Stop records the request duration with its status code. A transport error
// or a non-2xx status marks the request as failed.
func (t *HTTPTimer) Stop(statusCode int, err error) time.Duration {
	duration := time.Since(t.start)

	status := "succeeded"
	if err != nil || statusCode < 200 || statusCode > 299 {
		status = "failed"
	}
	code := strconv.Itoa(statusCode)

	t.registry.requestDuration.WithLabelValues(t.endpoint, code, status).Observe(duration.Seconds())
	t.registry.logger.Info("METRIC",
		zap.String("metric_type", "timer"),
		zap.String("metric", MetricHTTPRequestDuration),
		zap.Float64("value", duration.Seconds()),
		zap.Any("tags", map[string]interface{}{
			"endpoint":         t.endpoint,
			"http_status_code": statusCode,
			"status":           status,
		}))

	return duration
}

// Counter counts records of one stream
type Counter struct {
	registry *Registry
	endpoint string
	counter  prometheus.Counter
	value    int64
}

// RecordCounter returns a counter of emitted records for endpoint
func (r *Registry) RecordCounter(endpoint string) *Counter {
	return &Counter{
		registry: r,
		endpoint: endpoint,
		counter:  r.recordCount.WithLabelValues(endpoint),
	}
}

// Increment adds one record
func (c *Counter) Increment() {
	atomic.AddInt64(&c.value, 1)
	c.counter.Inc()
}

// Value returns the number of records counted by this counter
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Close logs the final count
func (c *Counter) Close() {
	c.registry.logger.Info("METRIC",
		zap.String("metric_type", "counter"),
		zap.String("metric", MetricRecordCount),
		zap.Int64("value", c.Value()),
		zap.Any("tags", map[string]interface{}{"endpoint": c.endpoint}))
}
