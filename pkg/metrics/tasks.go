package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TaskMetrics records outcomes of background tasks consumed by the worker.
type TaskMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	retried  *prometheus.CounterVec
	depth    prometheus.Gauge
}

// NewTaskMetrics registers the task metrics on the provided registerer.
func NewTaskMetrics(reg prometheus.Registerer) *TaskMetrics {
	if reg == nil {
		return &TaskMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "task_duration_seconds",
		Help:      "Duration of background task executions in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"task"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "task_success_total",
		Help:      "Successful background task executions.",
	}, []string{"task"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "task_failure_total",
		Help:      "Background tasks that exhausted their attempts or could not be decoded.",
	}, []string{"task"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "task_retried_total",
		Help:      "Background tasks re-queued after a failed attempt.",
	}, []string{"task"})
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "task_queue_depth",
		Help:      "Tasks waiting on the queue at the last poll.",
	})
	reg.MustRegister(duration, success, failure, retried, depth)
	return &TaskMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		retried:  retried,
		depth:    depth,
	}
}

// ObserveDuration records the duration for the named task.
func (t *TaskMetrics) ObserveDuration(task string, duration time.Duration) {
	if t == nil || t.duration == nil {
		return
	}
	t.duration.WithLabelValues(normalizeLabel(task)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named task.
func (t *TaskMetrics) IncSuccess(task string) {
	if t == nil || t.success == nil {
		return
	}
	t.success.WithLabelValues(normalizeLabel(task)).Inc()
}

// IncFailure increments the failure counter for the named task.
func (t *TaskMetrics) IncFailure(task string) {
	if t == nil || t.failure == nil {
		return
	}
	t.failure.WithLabelValues(normalizeLabel(task)).Inc()
}

// IncRetried increments the retry counter for the named task.
func (t *TaskMetrics) IncRetried(task string) {
	if t == nil || t.retried == nil {
		return
	}
	t.retried.WithLabelValues(normalizeLabel(task)).Inc()
}

// SetQueueDepth records how many tasks were waiting.
func (t *TaskMetrics) SetQueueDepth(n int64) {
	if t == nil || t.depth == nil {
		return
	}
	t.depth.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
