package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qworpa/qworpa/internal/models"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

// DefaultValkeyKey is the list holding pending email IDs.
const DefaultValkeyKey = "qworpa:mail"

// ValkeyQueue implements a distributed queue using a Valkey list.
// Valkey carries email IDs only; the database row is loaded on dequeue.
type ValkeyQueue struct {
	client valkey.Client
	db     *gorm.DB
	key    string
}

// NewValkeyQueue connects to Valkey at addr and verifies the connection
func NewValkeyQueue(addr string, db *gorm.DB) (*ValkeyQueue, error) {
	if db == nil {
		return nil, fmt.Errorf("database instance is required for Valkey queue")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	q := NewValkeyQueueWithClient(client, db)
	slog.Info("Initialized Valkey mail queue", "address", addr, "queue_key", q.key)
	return q, nil
}

// NewValkeyQueueWithClient wraps an existing client.
func NewValkeyQueueWithClient(client valkey.Client, db *gorm.DB) *ValkeyQueue {
	return &ValkeyQueue{client: client, db: db, key: DefaultValkeyKey}
}

// Enqueue pushes the email ID onto the list (RPUSH, FIFO with BLPOP)
func (q *ValkeyQueue) Enqueue(ctx context.Context, email *models.Email) error {
	if email.ID == uuid.Nil {
		return fmt.Errorf("email must have an ID")
	}

	cmd := q.client.B().Rpush().Key(q.key).Element(email.ID.String()).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to push email to Valkey: %w", err)
	}

	slog.Debug("Email enqueued", "email_id", email.ID, "queue_key", q.key)
	return nil
}

// Dequeue pops the next ID (blocking up to five seconds) and loads the row
func (q *ValkeyQueue) Dequeue(ctx context.Context) (*models.Email, error) {
	cmd := q.client.B().Blpop().Key(q.key).Timeout(5).Build()
	values, err := q.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, context.DeadlineExceeded
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to pop from Valkey: %w", err)
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("invalid BLPOP result: expected 2 values, got %d", len(values))
	}

	emailID, err := uuid.Parse(values[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse email ID: %w", err)
	}

	var email models.Email
	if err := q.db.WithContext(ctx).First(&email, "id = ?", emailID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("Dropping queued email with no outbox row", "email_id", emailID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch email from database: %w", err)
	}

	slog.Debug("Email dequeued", "email_id", email.ID)
	return &email, nil
}

// Close closes the Valkey connection
func (q *ValkeyQueue) Close() error {
	q.client.Close()
	slog.Info("Valkey queue closed")
	return nil
}
