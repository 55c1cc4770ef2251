package worker

// Jobs that exhaust their attempts are parked in dlq:<queue> for manual inspection.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with what is needed to debug or replay it.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

func sendToDLQ(ctx context.Context, b Broker, queue string, job Job, reason string) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      job.Attempts,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}
	key := DLQPrefix + queue
	if err := b.Push(ctx, key, data); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("dlq: job moved to dead letter queue")
}

// ReplayDLQ moves up to max parked jobs of queue back onto their original
// queue with their attempt count reset. Entries that cannot be decoded are
// pushed back to the DLQ. It returns the number of jobs re-queued.
func ReplayDLQ(ctx context.Context, b Broker, queue string, max int) (int, error) {
	key := DLQPrefix + queue
	n, err := b.Len(ctx, key)
	if err != nil {
		return 0, err
	}
	if max > 0 && int64(max) < n {
		n = int64(max)
	}

	replayed := 0
	for i := int64(0); i < n; i++ {
		_, raw, err := b.Pop(ctx, time.Second, key)
		if errors.Is(err, errEmpty) {
			break
		}
		if err != nil {
			return replayed, err
		}

		var entry DLQEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.JobType == "" {
			log.Warn().Str("dlq_key", key).Msg("dlq: undecodable entry kept")
			if err := b.Push(ctx, key, raw); err != nil {
				return replayed, err
			}
			continue
		}
		target := entry.OriginalQueue
		if target == "" {
			target = queue
		}
		data, err := json.Marshal(Job{Type: entry.JobType, Payload: entry.Payload})
		if err != nil {
			return replayed, err
		}
		if err := b.Push(ctx, target, data); err != nil {
			return replayed, err
		}
		replayed++
	}
	log.Info().Str("queue", queue).Int("replayed", replayed).Msg("dlq: replay finished")
	return replayed, nil
}

// DLQLength returns the number of parked jobs for queue.
func DLQLength(ctx context.Context, b Broker, queue string) (int64, error) {
	return b.Len(ctx, DLQPrefix+queue)
}
