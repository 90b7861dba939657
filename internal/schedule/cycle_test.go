package schedule

import (
	"testing"
	"time"

	"contentboard/internal/model"
)

var brt = time.FixedZone("BRT", -3*60*60)

func at(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, brt)
}

func fixedCalc(now time.Time) *Calculator {
	return NewCalculator(brt, func() time.Time { return now })
}

func TestCurrentCycleStart(t *testing.T) {
	calc := fixedCalc(time.Time{})
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"midweek", at(2025, 1, 8, 10, 0, 0), at(2025, 1, 6, 8, 0, 0)},
		{"monday before anchor", at(2025, 1, 6, 7, 59, 59), at(2024, 12, 30, 8, 0, 0)},
		{"monday at anchor", at(2025, 1, 6, 8, 0, 0), at(2025, 1, 6, 8, 0, 0)},
		{"sunday night", at(2025, 1, 12, 23, 0, 0), at(2025, 1, 6, 8, 0, 0)},
		{"utc input", time.Date(2025, 1, 6, 10, 30, 0, 0, time.UTC), at(2024, 12, 30, 8, 0, 0)},
	}
	for _, tc := range cases {
		got := calc.CurrentCycleStart(tc.now)
		if !got.Equal(tc.want) {
			t.Fatalf("%s: CurrentCycleStart(%v) = %v, want %v", tc.name, tc.now, got, tc.want)
		}
	}
}

func TestCycleIntervals(t *testing.T) {
	calc := fixedCalc(time.Time{})
	now := at(2025, 1, 8, 10, 0, 0)

	iv := calc.CurrentCycleInterval(now)
	if !iv.Start.Equal(at(2025, 1, 6, 8, 0, 0)) || !iv.End.Equal(at(2025, 1, 13, 8, 0, 0)) {
		t.Fatalf("unexpected current interval %+v", iv)
	}
	if !iv.Contains(now) || iv.Contains(iv.End) || !iv.Contains(iv.Start) {
		t.Fatalf("interval must be half-open")
	}

	prev := calc.PreviousCycleInterval(now)
	if !prev.End.Equal(iv.Start) || !prev.Start.Equal(at(2024, 12, 30, 8, 0, 0)) {
		t.Fatalf("unexpected previous interval %+v", prev)
	}

	month := calc.MonthInterval(at(2025, 2, 14, 12, 0, 0))
	if !month.Start.Equal(at(2025, 2, 1, 0, 0, 0)) || !month.End.Equal(at(2025, 3, 1, 0, 0, 0)) {
		t.Fatalf("unexpected month interval %+v", month)
	}
}

func TestIntervalContainsDate(t *testing.T) {
	calc := fixedCalc(time.Time{})
	iv := calc.CurrentCycleInterval(at(2025, 1, 8, 10, 0, 0))

	if !iv.ContainsDate(model.NewDate(2025, 1, 6), brt) {
		t.Fatalf("cycle monday should be inside")
	}
	if !iv.ContainsDate(model.NewDate(2025, 1, 12), brt) {
		t.Fatalf("cycle sunday should be inside")
	}
	if iv.ContainsDate(model.NewDate(2025, 1, 13), brt) {
		t.Fatalf("next monday should be outside")
	}
	if iv.ContainsDate(model.NewDate(2025, 1, 5), brt) {
		t.Fatalf("previous sunday should be outside")
	}
}

func TestLockDeadline(t *testing.T) {
	calc := fixedCalc(time.Time{})

	sunday := model.NewDate(2025, 1, 5)
	if got := calc.LockDeadline(sunday); !got.Equal(at(2025, 1, 6, 8, 0, 0)) {
		t.Fatalf("sunday deadline = %v", got)
	}

	wednesday := model.NewDate(2025, 1, 8)
	if got := calc.LockDeadline(wednesday); !got.Equal(at(2025, 1, 9, 23, 59, 59)) {
		t.Fatalf("weekday deadline = %v", got)
	}

	saturday := model.NewDate(2025, 1, 4)
	if got := calc.LockDeadline(saturday); !got.Equal(at(2025, 1, 5, 23, 59, 59)) {
		t.Fatalf("saturday deadline = %v", got)
	}
}

func TestIsLockedSundayScenario(t *testing.T) {
	calc := fixedCalc(time.Time{})
	task := &model.Task{PublishDate: model.NewDate(2025, 1, 5)}

	if calc.IsLocked(task, at(2025, 1, 6, 7, 59, 59)) {
		t.Fatalf("should not be locked at 07:59:59")
	}
	if calc.IsLocked(task, at(2025, 1, 6, 8, 0, 0)) {
		t.Fatalf("should not be locked exactly at the deadline")
	}
	if !calc.IsLocked(task, at(2025, 1, 6, 8, 0, 1)) {
		t.Fatalf("should be locked at 08:00:01")
	}
}

func TestIsLockedWithoutPublishDate(t *testing.T) {
	calc := fixedCalc(time.Time{})
	far := at(2030, 1, 1, 0, 0, 0)

	recurring := &model.Task{RecurrenceDays: model.NewWeekdaySet(time.Monday), CreatedAt: at(2020, 1, 1, 0, 0, 0)}
	if calc.IsLocked(recurring, far) {
		t.Fatalf("recurring task without publish date is never locked")
	}

	bad := &model.Task{PublishDateRaw: "ontem"}
	if calc.IsLocked(bad, far) {
		t.Fatalf("task with unreadable publish date is never locked")
	}

	dated := &model.Task{PublishDate: model.NewDate(2025, 1, 6), RecurrenceDays: model.NewWeekdaySet(time.Monday)}
	if !calc.IsLocked(dated, far) {
		t.Fatalf("recurring task with publish date locks on that date")
	}
}
