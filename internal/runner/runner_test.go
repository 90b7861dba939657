package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	contractdb "contentboard/contracts/db"
	contracts "contentboard/contracts/mq"
	"contentboard/internal/schedule"
	"contentboard/pkg/mq"
)

var brt = time.FixedZone("BRT", -3*60*60)

type fixedSource struct {
	standings []schedule.Standing
	got       []schedule.Interval
	err       error
}

func (f *fixedSource) RankingFor(ctx context.Context, iv schedule.Interval) (*schedule.Ranking, error) {
	f.got = append(f.got, iv)
	if f.err != nil {
		return nil, f.err
	}
	return &schedule.Ranking{Interval: iv, Standings: f.standings}, nil
}

type memSnapshots struct {
	rows       []contractdb.RankingSnapshot
	routingKey string
	event      interface{}
}

func (m *memSnapshots) SaveSnapshot(ctx context.Context, rows []contractdb.RankingSnapshot, routingKey string, event interface{}) error {
	m.rows, m.routingKey, m.event = rows, routingKey, event
	return nil
}

func calcAt(t time.Time) *schedule.Calculator {
	return schedule.NewCalculator(brt, func() time.Time { return t })
}

func TestCloseWeekSnapshotsPreviousCycle(t *testing.T) {
	source := &fixedSource{standings: []schedule.Standing{
		{UserID: "u1", Score: 5, Rank: 1, Medal: schedule.MedalGold},
		{UserID: "u2", Score: 2.5},
	}}
	store := &memSnapshots{}
	// the job fires right at the rollover
	closer := NewCycleCloser(source, store, calcAt(time.Date(2025, time.January, 13, 8, 0, 0, 0, brt)), zap.NewNop())

	if err := closer.CloseWeek(context.Background()); err != nil {
		t.Fatalf("close week: %v", err)
	}

	wantStart := time.Date(2025, time.January, 6, 8, 0, 0, 0, brt)
	wantEnd := time.Date(2025, time.January, 13, 8, 0, 0, 0, brt)
	if len(source.got) != 1 || !source.got[0].Start.Equal(wantStart) || !source.got[0].End.Equal(wantEnd) {
		t.Fatalf("unexpected interval %+v", source.got)
	}

	if len(store.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(store.rows))
	}
	if store.rows[0].Rank == nil || *store.rows[0].Rank != 1 || store.rows[1].Rank != nil {
		t.Fatalf("unexpected ranks %+v", store.rows)
	}
	if store.rows[0].Period != schedule.PeriodWeek || !store.rows[0].CycleStart.Equal(wantStart) {
		t.Fatalf("unexpected row %+v", store.rows[0])
	}
	if store.routingKey != mq.RoutingCycleClosed {
		t.Fatalf("unexpected routing key %q", store.routingKey)
	}
	event, ok := store.event.(contracts.CycleClosedPayload)
	if !ok || len(event.Rankings) != 2 || event.Rankings[0].Medal != schedule.MedalGold {
		t.Fatalf("unexpected event %#v", store.event)
	}
}

func TestCloseMonthCoversPreviousMonth(t *testing.T) {
	source := &fixedSource{}
	closer := NewCycleCloser(source, &memSnapshots{}, calcAt(time.Date(2025, time.January, 1, 0, 0, 0, 0, brt)), zap.NewNop())

	if err := closer.CloseMonth(context.Background()); err != nil {
		t.Fatalf("close month: %v", err)
	}
	iv := source.got[0]
	if !iv.Start.Equal(time.Date(2024, time.December, 1, 0, 0, 0, 0, brt)) || !iv.End.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, brt)) {
		t.Fatalf("unexpected month interval %+v", iv)
	}
}

func TestCloseWeekPropagatesRankingErrors(t *testing.T) {
	store := &memSnapshots{}
	closer := NewCycleCloser(&fixedSource{err: errors.New("mongo down")}, store, calcAt(time.Now()), zap.NewNop())

	if err := closer.CloseWeek(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if store.rows != nil {
		t.Fatalf("nothing should be stored")
	}
}

func TestWeeklySpecFiresMondayMorning(t *testing.T) {
	s := NewScheduler(brt, zap.NewNop())
	id, err := s.Add("close-week", WeeklyCycleSpec, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Start()
	defer s.Stop()

	next := s.Next(id).In(brt)
	if next.Weekday() != time.Monday || next.Hour() != 8 || next.Minute() != 0 {
		t.Fatalf("unexpected next run %s", next)
	}
}
