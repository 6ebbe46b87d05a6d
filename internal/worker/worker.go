package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qworpa/qworpa/internal/mail"
	"github.com/qworpa/qworpa/internal/models"
	"github.com/qworpa/qworpa/internal/queue"
	"gorm.io/gorm"
)

// MaxAttempts is how many times an email is tried before it is marked failed.
const MaxAttempts = 3

// Worker drains the mail queue and delivers each email through a Mailer
type Worker struct {
	db         *gorm.DB
	queue      queue.Queue
	mailer     mail.Mailer
	from       string
	logger     *slog.Logger
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
	retryDelay time.Duration
}

// New creates a new worker instance
func New(db *gorm.DB, q queue.Queue, mailer mail.Mailer, from string, logger *slog.Logger) *Worker {
	maxWorkers := 4
	return &Worker{
		db:         db,
		queue:      q,
		mailer:     mailer,
		from:       from,
		logger:     logger,
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		retryDelay: 5 * time.Second,
	}
}

// Start processes emails until ctx is canceled or the queue is closed
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Mail worker started", "max_concurrent_sends", w.maxWorkers)

	if err := w.requeuePending(ctx); err != nil {
		w.logger.Error("Failed to requeue pending emails", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Mail worker shutting down, waiting for sends to complete")
			w.wg.Wait()
			return ctx.Err()
		default:
		}

		email, err := w.queue.Dequeue(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
				// Poll interval elapsed with nothing queued
				continue
			case errors.Is(err, queue.ErrClosed):
				w.wg.Wait()
				w.logger.Info("Mail queue closed, worker stopped")
				return nil
			case ctx.Err() != nil:
				continue
			}
			w.logger.Error("Failed to dequeue email", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if email == nil {
			continue
		}

		select {
		case w.semaphore <- struct{}{}:
			w.wg.Add(1)
			go func(e *models.Email) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()
				w.process(ctx, e)
			}(email)
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		}
	}
}

// requeuePending re-enqueues outbox rows left pending by a previous run.
func (w *Worker) requeuePending(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Minute)

	// Rows left in sending by a crashed run become claimable again.
	if err := w.db.WithContext(ctx).Model(&models.Email{}).
		Where("status = ? AND updated_at < ?", models.EmailStatusSending, cutoff).
		Update("status", models.EmailStatusPending).Error; err != nil {
		return err
	}

	var pending []models.Email
	err := w.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.EmailStatusPending, cutoff).
		Find(&pending).Error
	if err != nil {
		return err
	}
	for i := range pending {
		if err := w.queue.Enqueue(ctx, &pending[i]); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		w.logger.Info("Requeued pending emails", "count", len(pending))
	}
	return nil
}

func (w *Worker) process(ctx context.Context, email *models.Email) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic recovered while sending email", "email_id", email.ID, "panic", r)
			w.markFailed(email, fmt.Sprintf("panic: %v", r))
		}
	}()

	claimed, err := w.claim(ctx, email)
	if err != nil {
		w.logger.Error("Failed to claim email", "email_id", email.ID, "error", err)
		return
	}
	if !claimed {
		w.logger.Debug("Skipping email no longer pending", "email_id", email.ID)
		return
	}

	err = w.mailer.Send(ctx, mail.Message{
		From:    w.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Body:    email.Body,
	})
	if err == nil {
		now := time.Now().UTC()
		email.Status = models.EmailStatusSent
		email.SentAt = &now
		email.Error = ""
		w.db.Model(email).Updates(map[string]any{"status": email.Status, "sent_at": now, "error": ""})
		w.logger.Info("Email sent", "email_id", email.ID, "to", email.To, "attempts", email.Attempts)
		return
	}

	if email.Attempts >= MaxAttempts {
		w.markFailed(email, err.Error())
		return
	}

	w.logger.Warn("Email send failed, retrying", "email_id", email.ID, "attempt", email.Attempts, "error", err)
	email.Status = models.EmailStatusPending
	email.Error = err.Error()
	w.db.Model(email).Updates(map[string]any{"status": email.Status, "error": email.Error})

	select {
	case <-time.After(w.retryDelay):
	case <-ctx.Done():
		return
	}
	if err := w.queue.Enqueue(ctx, email); err != nil {
		w.logger.Error("Failed to requeue email", "email_id", email.ID, "error", err)
	}
}

// claim moves a pending row to sending and reloads it. It reports false when
// another delivery already took the row or finished it.
func (w *Worker) claim(ctx context.Context, email *models.Email) (bool, error) {
	res := w.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ? AND status = ?", email.ID, models.EmailStatusPending).
		Updates(map[string]any{
			"status":   models.EmailStatusSending,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := w.db.WithContext(ctx).First(email, "id = ?", email.ID).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (w *Worker) markFailed(email *models.Email, reason string) {
	email.Status = models.EmailStatusFailed
	email.Error = reason
	w.db.Model(email).Updates(map[string]any{"status": email.Status, "error": reason})
	w.logger.Error("Email failed", "email_id", email.ID, "attempts", email.Attempts, "error", reason)
}
