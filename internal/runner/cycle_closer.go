package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	contractdb "contentboard/contracts/db"
	contracts "contentboard/contracts/mq"
	"contentboard/internal/schedule"
	"contentboard/pkg/logger"
	"contentboard/pkg/mq"
	"contentboard/pkg/trace"
)

// RankingSource computes a ranking over an interval.
type RankingSource interface {
	RankingFor(ctx context.Context, iv schedule.Interval) (*schedule.Ranking, error)
}

// SnapshotStore persists a closed cycle together with its outbox event.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, rows []contractdb.RankingSnapshot, routingKey string, event interface{}) error
}

// CycleCloser freezes the rankings of the period that just ended.
type CycleCloser struct {
	source RankingSource
	store  SnapshotStore
	calc   *schedule.Calculator
	logger *zap.Logger
}

func NewCycleCloser(source RankingSource, store SnapshotStore, calc *schedule.Calculator, logger *zap.Logger) *CycleCloser {
	return &CycleCloser{source: source, store: store, calc: calc, logger: logger}
}

// CloseWeek snapshots the weekly cycle preceding the current one.
func (c *CycleCloser) CloseWeek(ctx context.Context) error {
	return c.close(ctx, schedule.PeriodWeek, c.calc.PreviousCycleInterval(c.calc.Now()))
}

// CloseMonth snapshots the calendar month preceding the current one.
func (c *CycleCloser) CloseMonth(ctx context.Context) error {
	now := c.calc.Now()
	prev := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, c.calc.Location())
	return c.close(ctx, schedule.PeriodMonth, c.calc.MonthOf(prev.Year(), prev.Month()))
}

func (c *CycleCloser) close(ctx context.Context, period string, iv schedule.Interval) error {
	log := logger.WithTrace(ctx, c.logger).With(
		zap.String("period", period),
		zap.Time("cycle_start", iv.Start),
		zap.Time("cycle_end", iv.End),
	)
	log.Debug("Closing cycle")

	ranking, err := c.source.RankingFor(ctx, iv)
	if err != nil {
		log.Error("Failed to compute ranking", zap.Error(err))
		return fmt.Errorf("failed to compute %s ranking: %w", period, err)
	}

	rows, entries := snapshotRows(period, iv, ranking)
	event := contracts.CycleClosedPayload{
		Period:     period,
		CycleStart: iv.Start,
		CycleEnd:   iv.End,
		Rankings:   entries,
		TraceID:    trace.FromContext(ctx),
	}
	if err := c.store.SaveSnapshot(ctx, rows, mq.RoutingCycleClosed, event); err != nil {
		log.Error("Failed to save ranking snapshot", zap.Error(err))
		return err
	}

	log.Info("Cycle closed", zap.Int("users", len(rows)))
	return nil
}

func snapshotRows(period string, iv schedule.Interval, r *schedule.Ranking) ([]contractdb.RankingSnapshot, []contracts.RankingEntry) {
	rows := make([]contractdb.RankingSnapshot, 0, len(r.Standings))
	entries := make([]contracts.RankingEntry, 0, len(r.Standings))
	for _, s := range r.Standings {
		row := contractdb.RankingSnapshot{
			Period:     period,
			CycleStart: iv.Start,
			CycleEnd:   iv.End,
			UserID:     s.UserID,
			Score:      s.Score,
		}
		if s.Rank > 0 {
			rank := s.Rank
			row.Rank = &rank
		}
		rows = append(rows, row)
		entries = append(entries, contracts.RankingEntry{
			UserID: s.UserID,
			Score:  s.Score,
			Rank:   s.Rank,
			Medal:  s.Medal,
		})
	}
	return rows, entries
}
