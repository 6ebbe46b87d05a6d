package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qworpa/qworpa/internal/models"
)

// MemoryQueue implements an in-process queue backed by a buffered channel
type MemoryQueue struct {
	ch     chan *models.Email
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	slog.Info("Initialized in-memory mail queue", "buffer_size", bufferSize)
	return &MemoryQueue{ch: make(chan *models.Email, bufferSize)}
}

// Enqueue adds an email to the queue, waiting up to five seconds for room
func (q *MemoryQueue) Enqueue(ctx context.Context, email *models.Email) error {
	if email.ID == uuid.Nil {
		return fmt.Errorf("email must have an ID")
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	select {
	case q.ch <- email:
		slog.Debug("Email enqueued", "email_id", email.ID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("queue is full, could not enqueue email %s", email.ID)
	}
}

// Dequeue blocks until an email is available or ctx is done
func (q *MemoryQueue) Dequeue(ctx context.Context) (*models.Email, error) {
	select {
	case email, ok := <-q.ch:
		if !ok {
			return nil, ErrClosed
		}
		slog.Debug("Email dequeued", "email_id", email.ID)
		return email, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the queue; pending emails can still be dequeued
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	slog.Info("Memory queue closed")
	return nil
}
