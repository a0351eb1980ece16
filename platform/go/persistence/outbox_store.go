package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
)

const NotificationOutboxTable = "notification_outbox"

// OutboxStore implements notify.Outbox on Postgres.
type OutboxStore struct {
	pool *pgxpool.Pool
}

// NewOutboxStore returns an OutboxStore over pool.
func NewOutboxStore(pool *pgxpool.Pool) (*OutboxStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &OutboxStore{pool: pool}, nil
}

// Claim implements notify.Outbox. Rows locked by a concurrent claimer are skipped.
func (s *OutboxStore) Claim(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]notify.Message, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        WITH due AS (
            SELECT id FROM %[1]s
            WHERE status = 'pending' AND next_attempt_at <= $1
            ORDER BY created_at
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        UPDATE %[1]s o SET next_attempt_at = $3
        FROM due
        WHERE o.id = due.id
        RETURNING o.id, o.topic, o.payload, o.request_id, o.attempts, o.created_at
    `, NotificationOutboxTable), now, limit, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("claim outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]notify.Message, 0)
	for rows.Next() {
		var (
			msg   notify.Message
			topic string
		)
		if err := rows.Scan(&msg.ID, &topic, &msg.Payload, &msg.RequestID, &msg.Attempts, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msg.Topic = notify.Topic(topic)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// MarkDelivered implements notify.Outbox.
func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET status = 'delivered', delivered_at = $2, last_error = ''
        WHERE id = $1
    `, NotificationOutboxTable), id, at)
	if err != nil {
		return fmt.Errorf("mark outbox message delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notify.ErrMessageNotFound
	}
	return nil
}

// MarkFailed implements notify.Outbox.
func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, failure notify.Failure) error {
	status := "pending"
	if failure.Dead {
		status = "dead"
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET status = $2, attempts = $3, next_attempt_at = $4, last_error = $5
        WHERE id = $1
    `, NotificationOutboxTable), id, status, failure.Attempts, failure.NextAttemptAt, failure.LastError)
	if err != nil {
		return fmt.Errorf("mark outbox message failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notify.ErrMessageNotFound
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertOutboxMessage(ctx context.Context, db execer, msg notify.Message) error {
	if msg.ID == uuid.Nil {
		return errors.New("outbox message id is required")
	}
	_, err := db.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, topic, payload, request_id, next_attempt_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $5)
    `, NotificationOutboxTable), msg.ID, string(msg.Topic), []byte(msg.Payload), msg.RequestID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
