package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"zedcmms/internal/service"

	"github.com/redis/go-redis/v9"
)

const (
	QueueEmail = "jobs:email"

	JobTypeEmail = "email"
)

// Job is the envelope stored in every queue.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// errEmpty is returned by a Broker pop that timed out without a job.
var errEmpty = errors.New("worker: queue empty")

// Broker is the list transport behind the pool: LPUSH to enqueue, BRPOP to take.
type Broker interface {
	Push(ctx context.Context, queue string, data []byte) error
	Pop(ctx context.Context, timeout time.Duration, queues ...string) (queue string, raw []byte, err error)
	Len(ctx context.Context, queue string) (int64, error)
}

type redisBroker struct{ rdb *redis.Client }

// NewRedisBroker backs the queues with Redis lists.
func NewRedisBroker(rdb *redis.Client) Broker { return &redisBroker{rdb: rdb} }

func (b *redisBroker) Push(ctx context.Context, queue string, data []byte) error {
	return b.rdb.LPush(ctx, queue, data).Err()
}

func (b *redisBroker) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	res, err := b.rdb.BRPop(ctx, timeout, queues...).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, errEmpty
	}
	if err != nil {
		return "", nil, err
	}
	if len(res) < 2 {
		return "", nil, errEmpty
	}
	return res[0], []byte(res[1]), nil
}

func (b *redisBroker) Len(ctx context.Context, queue string) (int64, error) {
	return b.rdb.LLen(ctx, queue).Result()
}

// Dispatcher enqueues jobs; the pool consumes them.
type Dispatcher struct{ b Broker }

func NewDispatcher(b Broker) *Dispatcher { return &Dispatcher{b: b} }

var _ service.EmailQueue = (*Dispatcher)(nil)

// EnqueueEmail queues an outgoing notification e-mail.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, job service.EmailJob) error {
	return d.enqueue(ctx, QueueEmail, JobTypeEmail, job)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.b.Push(ctx, queue, encoded)
}
