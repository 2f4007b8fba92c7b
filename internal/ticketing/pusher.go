package ticketing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PushKind identifies a queued outbound write.
type PushKind string

const (
	PushComment  PushKind = "comment"
	PushAssignee PushKind = "assignee"
	PushPriority PushKind = "priority"
)

// PushJob is one outbound write to the ticketing system. Jobs are
// retried independently of the local mutation that created them; a
// failed push never rolls back local state.
type PushJob struct {
	ID       string   `json:"id"`
	Kind     PushKind `json:"kind"`
	Ref      string   `json:"ref"`
	Body     string   `json:"body,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
	Priority int      `json:"priority,omitempty"`
	Attempts int      `json:"attempts"`
}

// Pusher enqueues outbound writes for asynchronous delivery.
type Pusher interface {
	Enqueue(ctx context.Context, job PushJob) error
}

const pushQueueKey = "ticketing:push:queue"

// RedisPusher queues push jobs on a Redis list drained by the push
// worker. Enqueue is best-effort non-blocking: a queue failure is
// logged, never surfaced to the mutation that triggered the push.
type RedisPusher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPusher constructs a RedisPusher.
func NewRedisPusher(client *redis.Client, logger *zap.Logger) *RedisPusher {
	return &RedisPusher{client: client, logger: logger}
}

// Enqueue pushes a job onto the delivery queue.
func (p *RedisPusher) Enqueue(ctx context.Context, job PushJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := p.client.LPush(ctx, pushQueueKey, raw).Err(); err != nil {
		p.logger.Warn("push enqueue failed",
			zap.String("kind", string(job.Kind)),
			zap.String("ref", job.Ref),
			zap.Error(err))
		return err
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. Returns (nil, nil)
// when the queue stayed empty.
func (p *RedisPusher) Dequeue(ctx context.Context, timeout time.Duration) (*PushJob, error) {
	res, err := p.client.BRPop(ctx, timeout, pushQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	var job PushJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
