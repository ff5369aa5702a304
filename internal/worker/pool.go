package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pickupshop/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobOrderConfirmation = "order_confirmation"

	// MaxAttempts counts the first try.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// OrderEmailPayload is the body of an order confirmation job.
type OrderEmailPayload struct {
	ToEmail      string            `json:"to_email"`
	CustomerName string            `json:"customer_name"`
	Order        dto.OrderResponse `json:"order"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueOrderConfirmation pushes a confirmation email job to Redis.
func (d *Dispatcher) EnqueueOrderConfirmation(ctx context.Context, payload OrderEmailPayload) error {
	return d.enqueue(ctx, QueueEmail, JobOrderConfirmation, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return fmt.Errorf("dispatcher: no redis client")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handler processes one job payload. A returned error makes the job eligible
// for a retry unless it is wrapped with Permanent.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as one a retry cannot fix; the job goes straight to
// the DLQ.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// WorkerHandlers maps job types to their handler.
type WorkerHandlers struct {
	Email Handler
}

func (h *WorkerHandlers) forType(jobType string) Handler {
	switch jobType {
	case JobOrderConfirmation:
		return h.Email
	default:
		return nil
	}
}

// Pool consumes the job queues. Failed jobs are scheduled for a delayed retry
// and land in the DLQ after MaxAttempts.
type Pool struct {
	rdb      *redis.Client
	handlers *WorkerHandlers
	retries  *RetryScheduler
	dlq      *DeadLetters
}

func NewPool(rdb *redis.Client, handlers *WorkerHandlers, retries *RetryScheduler, dlq *DeadLetters) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, retries: retries, dlq: dlq}
}

// Start launches numWorkers goroutines consuming the queues.
// Each goroutine blocks on BRPOP.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

const (
	pollTimeout    = 5 * time.Second
	minPollBackoff = 500 * time.Millisecond
	maxPollBackoff = 30 * time.Second
)

// nextPollBackoff doubles the wait after each consecutive Redis error.
func nextPollBackoff(prev time.Duration) time.Duration {
	if prev < minPollBackoff {
		return minPollBackoff
	}
	if next := prev * 2; next < maxPollBackoff {
		return next
	}
	return maxPollBackoff
}

func (p *Pool) run(ctx context.Context, id int) {
	queues := []string{QueueEmail}
	var wait time.Duration
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("worker %d shutting down", id)
			return
		}
		result, err := p.rdb.BRPop(ctx, pollTimeout, queues...).Result()
		switch {
		case errors.Is(err, redis.Nil):
			wait = 0
			continue
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			wait = nextPollBackoff(wait)
			log.Error().Err(err).Int("worker", id).Dur("backoff", wait).Msg("redis poll failed")
			sleepCtx(ctx, wait)
			continue
		}
		wait = 0
		if len(result) < 2 {
			continue
		}
		p.Handle(ctx, result[0], []byte(result[1]))
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Handle runs one raw job taken from queue.
func (p *Pool) Handle(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	h := p.handlers.forType(job.Type)
	if h == nil {
		p.dlq.Push(ctx, queue, job, "no handler for job type")
		return
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Info().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job processed")
		return
	}

	if job.Attempts >= MaxAttempts || IsPermanent(err) {
		p.dlq.Push(ctx, queue, job, err.Error())
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, retry scheduled")
	if serr := p.retries.Schedule(ctx, queue, job); serr != nil {
		p.dlq.Push(ctx, queue, job, "retry scheduling failed: "+serr.Error())
	}
}
