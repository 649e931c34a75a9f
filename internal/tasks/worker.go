package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/metrics"
)

const (
	defaultConcurrency = 4
	defaultPollTimeout = 5 * time.Second
	defaultMaxAttempts = 3
	dequeueBackoff     = time.Second
)

// WorkerParams configure the task worker.
type WorkerParams struct {
	Logger      *logger.Logger
	Queue       Queue
	QueueName   string
	Registry    *Registry
	Metrics     *metrics.TaskMetrics
	Concurrency int
	PollTimeout time.Duration
	MaxAttempts int
}

// Worker consumes the queue with a fixed pool of goroutines.
type Worker struct {
	logg        *logger.Logger
	queue       Queue
	queueName   string
	registry    *Registry
	metrics     *metrics.TaskMetrics
	concurrency int
	pollTimeout time.Duration
	maxAttempts int
}

// NewWorker builds a worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("task queue required")
	}
	if params.QueueName == "" {
		return nil, fmt.Errorf("queue name required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("task registry required")
	}
	w := &Worker{
		logg:        params.Logger,
		queue:       params.Queue,
		queueName:   params.QueueName,
		registry:    params.Registry,
		metrics:     params.Metrics,
		concurrency: params.Concurrency,
		pollTimeout: params.PollTimeout,
		maxAttempts: params.MaxAttempts,
	}
	if w.concurrency <= 0 {
		w.concurrency = defaultConcurrency
	}
	if w.pollTimeout <= 0 {
		w.pollTimeout = defaultPollTimeout
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = defaultMaxAttempts
	}
	return w, nil
}

// Run consumes tasks until ctx is canceled. It returns nil on a clean stop.
func (w *Worker) Run(ctx context.Context) error {
	w.logg.Info(w.logg.WithFields(ctx, map[string]any{
		"queue":       w.queueName,
		"concurrency": w.concurrency,
		"tasks":       w.registry.Names(),
	}), "task worker starting")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.consume(gctx)
		})
	}
	err := g.Wait()
	w.logg.Info(ctx, "task worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := w.queue.Dequeue(ctx, w.queueName, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logg.Error(ctx, "dequeue failed", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		if raw == nil {
			w.sampleDepth(ctx)
			continue
		}
		w.process(ctx, raw)
	}
}

// process runs a single payload. Failures never stop the consumer.
func (w *Worker) process(ctx context.Context, raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		w.logg.Error(w.logg.WithField(ctx, "event", "task.decode"), "dropping undecodable task", err)
		w.metrics.IncFailure("")
		return
	}

	taskCtx := w.logg.WithTask(ctx, env.Name, env.ID)
	taskCtx = w.logg.WithField(taskCtx, "attempt", env.Attempts+1)

	handler, ok := w.registry.Lookup(env.Name)
	if !ok {
		w.logg.Warn(taskCtx, "dropping task with no registered handler")
		w.metrics.IncFailure(env.Name)
		return
	}

	start := time.Now()
	err = handler.Handle(taskCtx, env.Payload)
	duration := time.Since(start)
	w.metrics.ObserveDuration(env.Name, duration)
	taskCtx = w.logg.WithField(taskCtx, "duration_ms", duration.Milliseconds())

	if err == nil {
		w.logg.Info(taskCtx, "task completed")
		w.metrics.IncSuccess(env.Name)
		return
	}

	env.Attempts++
	if env.Attempts >= w.maxAttempts || errors.Is(err, ErrPermanent) {
		w.logg.Error(taskCtx, "task failed permanently", err)
		w.metrics.IncFailure(env.Name)
		return
	}
	w.logg.Error(taskCtx, "task failed; requeueing", err)
	if rqErr := w.requeue(ctx, env); rqErr != nil {
		w.logg.Error(taskCtx, "requeue failed", rqErr)
		w.metrics.IncFailure(env.Name)
		return
	}
	w.metrics.IncRetried(env.Name)
}

func (w *Worker) requeue(ctx context.Context, env *Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return w.queue.Enqueue(ctx, w.queueName, raw)
}

func (w *Worker) sampleDepth(ctx context.Context) {
	n, err := w.queue.QueueLen(ctx, w.queueName)
	if err != nil {
		return
	}
	w.metrics.SetQueueDepth(n)
}

// ErrPermanent marks a handler error that retrying cannot fix.
var ErrPermanent = errors.New("permanent task failure")

// Permanent wraps err so the worker drops the task instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
