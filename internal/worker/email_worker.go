package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"zedcmms/internal/infra"
	"zedcmms/internal/service"

	"github.com/rs/zerolog/log"
)

// Sender delivers one e-mail.
type Sender interface {
	Send(to, subject, body string, att *infra.Attachment) error
}

// EmailWorker delivers notification e-mails through a circuit breaker so a
// dead SMTP server fails jobs fast instead of stalling the pool.
type EmailWorker struct {
	sender Sender
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var job service.EmailJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if job.To == "" {
		log.Warn().Str("subject", job.Subject).Msg("email_worker: empty recipient, skipping")
		return nil
	}
	err := w.cb.Execute(func() error {
		return w.sender.Send(job.To, job.Subject, job.Body, nil)
	})
	if err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", job.To, err)
	}
	log.Info().Str("to", job.To).Str("subject", job.Subject).Msg("email_worker: sent")
	return nil
}
