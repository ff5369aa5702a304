package worker

// retry_cron.go
// Failed jobs wait in a sorted set scored by their due time. A ticker moves
// due jobs back onto their queue. Ticks are skipped while the mail circuit
// breaker is open so a downed SMTP server is not hammered.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"pickupshop/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	RetrySetKey       = "jobs:retry"
	retryTickInterval = 5 * time.Second
	retryBatchSize    = 50
	retryBaseDelay    = 30 * time.Second
)

type retryEntry struct {
	Queue string `json:"queue"`
	Job   Job    `json:"job"`
}

type RetryScheduler struct {
	rdb *redis.Client
	cb  *infra.Breaker
	now func() time.Time
}

func NewRetryScheduler(rdb *redis.Client, cb *infra.Breaker) *RetryScheduler {
	return &RetryScheduler{rdb: rdb, cb: cb, now: time.Now}
}

// backoff doubles per attempt: 30s, 60s, 120s...
func backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return retryBaseDelay * time.Duration(1<<uint(attempts-1))
}

// Schedule stores job to be requeued after its backoff.
func (s *RetryScheduler) Schedule(ctx context.Context, queue string, job Job) error {
	data, err := json.Marshal(retryEntry{Queue: queue, Job: job})
	if err != nil {
		return err
	}
	due := s.now().Add(backoff(job.Attempts))
	return s.rdb.ZAdd(ctx, RetrySetKey, redis.Z{Score: float64(due.Unix()), Member: data}).Err()
}

// Start launches the ticker goroutine. It stops with ctx.
func (s *RetryScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				if _, err := s.RequeueDue(ctx); err != nil {
					log.Error().Err(err).Msg("retry_cron: requeue failed")
				}
			}
		}
	}()
}

// RequeueDue moves every due job back to its queue and returns how many
// were moved. ZREM decides ownership so concurrent schedulers never requeue
// the same job twice.
func (s *RetryScheduler) RequeueDue(ctx context.Context) (int, error) {
	if s.cb != nil && s.cb.State() == infra.BreakerOpen {
		log.Debug().Msg("retry_cron: smtp breaker is open, skipping tick")
		return 0, nil
	}

	members, err := s.rdb.ZRangeByScore(ctx, RetrySetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(s.now().Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, m := range members {
		removed, err := s.rdb.ZRem(ctx, RetrySetKey, m).Result()
		if err != nil || removed == 0 {
			continue
		}
		var entry retryEntry
		if err := json.Unmarshal([]byte(m), &entry); err != nil {
			log.Error().Err(err).Msg("retry_cron: dropping malformed entry")
			continue
		}
		encoded, err := json.Marshal(entry.Job)
		if err != nil {
			continue
		}
		if err := s.rdb.LPush(ctx, entry.Queue, encoded).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Int("jobs", moved).Msg("retry_cron: jobs requeued")
	}
	return moved, nil
}
