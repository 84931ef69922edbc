package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vinyl-store/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NotificationRepository is the outbox for email and push messages
type NotificationRepository interface {
	Enqueue(ctx context.Context, tx *sql.Tx, notifications ...*domain.Notification) error
	ClaimBatch(ctx context.Context, tx *sql.Tx, batchSize, maxAttempts int) ([]*domain.Notification, error)
	MarkDispatched(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID, errMsg string) error
}

type notificationRepository struct {
	tracer trace.Tracer
}

func NewNotificationRepository() NotificationRepository {
	return &notificationRepository{tracer: otel.Tracer("repository/notifications")}
}

func (r *notificationRepository) Enqueue(ctx context.Context, tx *sql.Tx, notifications ...*domain.Notification) error {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.Enqueue")
	defer span.End()

	span.SetAttributes(attribute.Int("count", len(notifications)))

	for _, n := range notifications {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO notifications (id, kind, recipient, data, attempts, created_at)
			VALUES ($1, $2, $3, $4, 0, $5)
		`, n.ID, string(n.Kind), n.Recipient, string(data), n.CreatedAt)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to enqueue notification: %w", err)
		}
	}

	return nil
}

// ClaimBatch locks the oldest pending rows; concurrent workers skip them
func (r *notificationRepository) ClaimBatch(ctx context.Context, tx *sql.Tx, batchSize, maxAttempts int) ([]*domain.Notification, error) {
	ctx, span := r.tracer.Start(ctx, "NotificationRepository.ClaimBatch")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", batchSize))

	rows, err := tx.QueryContext(ctx, `
		SELECT id, kind, recipient, data, attempts, last_error, created_at
		FROM notifications
		WHERE dispatched_at IS NULL AND attempts < $2
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, batchSize, maxAttempts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	var batch []*domain.Notification
	for rows.Next() {
		var (
			n         domain.Notification
			kind      string
			data      []byte
			lastError sql.NullString
		)
		if err := rows.Scan(&n.ID, &kind, &n.Recipient, &data, &n.Attempts, &lastError, &n.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = domain.NotificationKind(kind)
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
		if lastError.Valid {
			n.LastError = &lastError.String
		}
		batch = append(batch, &n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(batch)))
	return batch, nil
}

func (r *notificationRepository) MarkDispatched(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE notifications SET dispatched_at = NOW(), last_error = NULL WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification dispatched: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID, errMsg string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE notifications SET last_error = $2, attempts = attempts + 1 WHERE id = $1`, id, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}
