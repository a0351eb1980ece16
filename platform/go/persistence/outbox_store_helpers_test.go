package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
)

// outboxRow is the bookkeeping view of a stored message.
type outboxRow struct {
	notify.Message
	Status        string
	NextAttemptAt time.Time
	LastError     string
	DeliveredAt   *time.Time
}

// enqueueOutbox stores msg outside of any schedule write.
func enqueueOutbox(ctx context.Context, s *OutboxStore, msg notify.Message) error {
	return insertOutboxMessage(ctx, s.pool, msg)
}

func getOutboxRow(ctx context.Context, s *OutboxStore, id uuid.UUID) (outboxRow, error) {
	var (
		row   outboxRow
		topic string
	)
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, topic, payload, request_id, attempts, created_at, status, next_attempt_at, last_error, delivered_at
        FROM %s WHERE id = $1
    `, NotificationOutboxTable), id).Scan(
		&row.ID, &topic, &row.Payload, &row.RequestID, &row.Attempts, &row.CreatedAt,
		&row.Status, &row.NextAttemptAt, &row.LastError, &row.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outboxRow{}, notify.ErrMessageNotFound
		}
		return outboxRow{}, fmt.Errorf("get outbox row: %w", err)
	}
	row.Topic = notify.Topic(topic)
	return row, nil
}
