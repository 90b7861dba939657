package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contractdb "contentboard/contracts/db"
	"contentboard/pkg/metrics"
	"contentboard/pkg/outbox"
)

// DeliveryRepository records notification attempts in notification_log and
// queues the matching event in the outbox within one transaction.
type DeliveryRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewDeliveryRepository(db *pgxpool.Pool, logger *zap.Logger) *DeliveryRepository {
	return &DeliveryRepository{
		db:         db,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

// Record inserts entry and, when routingKey is set, the outbox event built by
// payload from the new row id.
func (r *DeliveryRepository) Record(
	ctx context.Context,
	entry *contractdb.NotificationLog,
	routingKey string,
	payload func(logID int64) interface{},
) error {
	r.logger.Debug("Recording delivery",
		zap.String("task_id", entry.TaskID),
		zap.String("status", entry.Status),
	)
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "postgres", time.Since(start)) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var errText *string
	if entry.Error != "" {
		errText = &entry.Error
	}
	query := `
		INSERT INTO notification_log (task_id, message_id, recipients, subject, status, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, query,
		entry.TaskID,
		entry.MessageID,
		entry.Recipients,
		entry.Subject,
		entry.Status,
		errText,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification log", zap.String("task_id", entry.TaskID), zap.Error(err))
		return fmt.Errorf("failed to insert notification log: %w", err)
	}

	if routingKey != "" && payload != nil {
		if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "notification", entry.TaskID, routingKey, payload(entry.ID)); err != nil {
			r.logger.Error("Failed to insert outbox event", zap.String("routing_key", routingKey), zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit delivery: %w", err)
	}

	r.logger.Info("Delivery recorded",
		zap.Int64("log_id", entry.ID),
		zap.String("task_id", entry.TaskID),
		zap.String("status", entry.Status),
	)
	return nil
}

// ListByTask returns the delivery attempts for a task, newest first.
func (r *DeliveryRepository) ListByTask(ctx context.Context, taskID string) ([]contractdb.NotificationLog, error) {
	query := `
		SELECT id, task_id, message_id, recipients, subject, status, COALESCE(error, ''), created_at
		FROM notification_log
		WHERE task_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to query notification log", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	logs := []contractdb.NotificationLog{}
	for rows.Next() {
		var l contractdb.NotificationLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.MessageID, &l.Recipients, &l.Subject, &l.Status, &l.Error, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
