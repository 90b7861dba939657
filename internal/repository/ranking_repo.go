package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contractdb "contentboard/contracts/db"
	"contentboard/pkg/metrics"
	"contentboard/pkg/outbox"
)

// RankingRepository stores closed-cycle rankings in ranking_snapshots.
type RankingRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewRankingRepository(db *pgxpool.Pool, logger *zap.Logger) *RankingRepository {
	return &RankingRepository{db: db, outboxRepo: outbox.NewRepository(db), logger: logger}
}

// SaveSnapshot upserts every row and queues the cycle.closed event in the
// same transaction. Re-running a cycle overwrites its rows.
func (r *RankingRepository) SaveSnapshot(
	ctx context.Context,
	rows []contractdb.RankingSnapshot,
	routingKey string,
	event interface{},
) error {
	r.logger.Debug("Saving ranking snapshot", zap.Int("rows", len(rows)))
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("upsert", "postgres", time.Since(start)) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO ranking_snapshots (period, cycle_start, cycle_end, user_id, score, rank)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (period, cycle_start, user_id)
		DO UPDATE SET cycle_end = EXCLUDED.cycle_end, score = EXCLUDED.score, rank = EXCLUDED.rank
	`
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row.Period, row.CycleStart, row.CycleEnd, row.UserID, row.Score, row.Rank)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("Failed to save ranking snapshot", zap.Error(err))
		return fmt.Errorf("failed to save ranking snapshot: %w", err)
	}

	if routingKey != "" && event != nil {
		if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "cycle", "", routingKey, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ranking snapshot: %w", err)
	}

	r.logger.Info("Ranking snapshot saved", zap.Int("rows", len(rows)))
	return nil
}

// ListCycle returns the snapshot stored for a period and cycle start.
func (r *RankingRepository) ListCycle(ctx context.Context, period string, cycleStart time.Time) ([]contractdb.RankingSnapshot, error) {
	query := `
		SELECT id, period, cycle_start, cycle_end, user_id, score, rank, created_at
		FROM ranking_snapshots
		WHERE period = $1 AND cycle_start = $2
		ORDER BY score DESC, user_id ASC
	`
	rows, err := r.db.Query(ctx, query, period, cycleStart)
	if err != nil {
		r.logger.Error("Failed to query ranking snapshot", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []contractdb.RankingSnapshot{}
	for rows.Next() {
		var s contractdb.RankingSnapshot
		if err := rows.Scan(&s.ID, &s.Period, &s.CycleStart, &s.CycleEnd, &s.UserID, &s.Score, &s.Rank, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
