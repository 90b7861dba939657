package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS notification_log (
		id          BIGSERIAL PRIMARY KEY,
		task_id     TEXT        NOT NULL,
		message_id  TEXT        NOT NULL,
		recipients  TEXT[]      NOT NULL,
		subject     TEXT        NOT NULL,
		status      TEXT        NOT NULL,
		error       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS notification_log_task_idx ON notification_log (task_id)`,
	`CREATE TABLE IF NOT EXISTS ranking_snapshots (
		id           BIGSERIAL PRIMARY KEY,
		period       TEXT        NOT NULL,
		cycle_start  TIMESTAMPTZ NOT NULL,
		cycle_end    TIMESTAMPTZ NOT NULL,
		user_id      TEXT        NOT NULL,
		score        DOUBLE PRECISION NOT NULL,
		rank         INT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (period, cycle_start, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT        NOT NULL,
		aggregate_id   TEXT,
		routing_key    TEXT        NOT NULL,
		payload        JSONB       NOT NULL,
		status         TEXT        NOT NULL DEFAULT 'pending',
		retry_count    INT         NOT NULL DEFAULT 0,
		next_retry_at  TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_pending_idx ON outbox_events (status, next_retry_at)`,
}

// EnsureSchema creates the tables used by the notifier and runner.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
