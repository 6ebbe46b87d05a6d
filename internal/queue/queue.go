// Package queue carries outbound emails from the API to the mail worker.
package queue

import (
	"context"
	"errors"

	"github.com/qworpa/qworpa/internal/models"
)

// ErrClosed is returned when enqueueing onto a closed queue.
var ErrClosed = errors.New("queue is closed")

// Queue transports outbox rows to the mail worker. The database row is the
// source of truth; implementations may carry only its ID.
type Queue interface {
	// Enqueue adds an email to the queue
	Enqueue(ctx context.Context, email *models.Email) error

	// Dequeue retrieves the next email. It returns context.DeadlineExceeded
	// when nothing arrived within the implementation's poll interval.
	Dequeue(ctx context.Context) (*models.Email, error)

	// Close closes the queue and releases resources
	Close() error
}
