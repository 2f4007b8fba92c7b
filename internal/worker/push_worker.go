package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/observability"
	"github.com/spec-kit/escalation-service/internal/ticketing"
)

// PushWorker drains the external push queue. Each job is delivered with
// bounded retries; jobs are independent, so one failure never blocks or
// rolls back another. A job that exhausts its attempts is dropped and
// announced on the event dispatcher.
type PushWorker struct {
	queue       *ticketing.RedisPusher
	client      ticketing.Client
	maxAttempts int
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewPushWorker constructs the worker.
func NewPushWorker(queue *ticketing.RedisPusher, client ticketing.Client, maxAttempts int, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *PushWorker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &PushWorker{
		queue:       queue,
		client:      client,
		maxAttempts: maxAttempts,
		dispatcher:  dispatcher,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled, delivering queued pushes.
func (w *PushWorker) Run(ctx context.Context) {
	w.logger.Info("push worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("push worker stopped")
			return
		}
		job, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Warn("push dequeue failed", zap.Error(err))
			sleep(ctx, 2*time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.deliver(ctx, *job)
	}
}

func (w *PushWorker) deliver(ctx context.Context, job ticketing.PushJob) {
	err := w.push(ctx, job)
	if err == nil {
		return
	}

	w.metrics.RecordPushFailure()
	job.Attempts++
	if job.Attempts >= w.maxAttempts {
		w.logger.Error("external push dropped after max attempts",
			zap.String("kind", string(job.Kind)),
			zap.String("ref", job.Ref),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
		if w.dispatcher != nil {
			_ = w.dispatcher.Publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventPushFailed,
				Actor:     domain.SystemActor,
				Timestamp: time.Now().UTC(),
				Payload: events.PushFailedPayload{
					Kind:     string(job.Kind),
					Ref:      job.Ref,
					Attempts: job.Attempts,
				},
			})
		}
		return
	}

	w.logger.Warn("external push failed, requeueing",
		zap.String("kind", string(job.Kind)),
		zap.String("ref", job.Ref),
		zap.Int("attempts", job.Attempts),
		zap.Error(err))
	sleep(ctx, time.Duration(job.Attempts)*2*time.Second)
	if err := w.queue.Enqueue(ctx, job); err != nil {
		w.logger.Error("push requeue failed", zap.String("ref", job.Ref), zap.Error(err))
	}
}

func (w *PushWorker) push(ctx context.Context, job ticketing.PushJob) error {
	switch job.Kind {
	case ticketing.PushComment:
		return w.client.AddComment(ctx, job.Ref, job.Body)
	case ticketing.PushAssignee:
		return w.client.ChangeAssignee(ctx, job.Ref, job.Assignee)
	case ticketing.PushPriority:
		return w.client.ChangePriority(ctx, job.Ref, job.Priority)
	default:
		w.logger.Warn("unknown push kind dropped", zap.String("kind", string(job.Kind)))
		return nil
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
