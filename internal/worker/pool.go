package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxAttempts is how often a job is tried before it goes to the DLQ.
const MaxAttempts = 3

// Handler processes the payload of one job type.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

func (f HandlerFunc) Process(ctx context.Context, payload json.RawMessage) error { return f(ctx, payload) }

// Pool runs a fixed number of goroutines blocking on the queues.
type Pool struct {
	b        Broker
	size     int
	queues   []string
	handlers map[string]Handler
	popWait  time.Duration
	backoff  func(attempt int) time.Duration
	wg       sync.WaitGroup
}

func NewPool(b Broker, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		b:        b,
		size:     size,
		handlers: make(map[string]Handler),
		popWait:  5 * time.Second,
		backoff:  retryBackoff,
	}
}

// Register binds a job type to its handler and queue.
func (p *Pool) Register(queue, jobType string, h Handler) {
	p.handlers[jobType] = h
	for _, q := range p.queues {
		if q == queue {
			return
		}
	}
	p.queues = append(p.queues, queue)
}

// Start launches the workers. They stop when ctx is cancelled; Wait blocks until they have.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	log.Info().Int("workers", p.size).Strs("queues", p.queues).Msg("worker pool started")
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		}
		queue, raw, err := p.b.Pop(ctx, p.popWait, p.queues...)
		if err != nil {
			if !errors.Is(err, errEmpty) && ctx.Err() == nil {
				log.Error().Err(err).Int("worker", id).Msg("queue pop failed")
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		p.handle(ctx, queue, raw)
	}
}

// handle runs one job, requeueing it on failure until MaxAttempts.
func (p *Pool) handle(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("invalid job envelope")
		quoted, _ := json.Marshal(string(raw))
		sendToDLQ(ctx, p.b, queue, Job{Type: "unknown", Payload: quoted}, "invalid envelope")
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		sendToDLQ(ctx, p.b, queue, job, "no handler for job type "+job.Type)
		return
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Debug().Str("queue", queue).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job done")
		return
	}
	if job.Attempts >= MaxAttempts {
		sendToDLQ(ctx, p.b, queue, job, err.Error())
		return
	}

	log.Warn().Err(err).Str("queue", queue).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, retrying")
	sleepCtx(ctx, p.backoff(job.Attempts))
	data, mErr := json.Marshal(job)
	if mErr != nil {
		log.Error().Err(mErr).Msg("requeue marshal failed")
		return
	}
	// Requeue with a fresh context so a job interrupted by shutdown is not lost.
	if pErr := p.b.Push(context.WithoutCancel(ctx), queue, data); pErr != nil {
		log.Error().Err(pErr).Str("queue", queue).Msg("requeue failed")
	}
}

// retryBackoff is 2s, 4s, 8s... capped at one minute.
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * time.Second
	if d > time.Minute {
		d = time.Minute
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
