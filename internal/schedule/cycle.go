package schedule

import (
	"time"

	"contentboard/internal/model"
)

// Clock returns the current instant.
type Clock func() time.Time

const (
	cycleAnchorHour = 8
	cycleWeekday    = time.Monday
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// ContainsDate reports whether calendar day d falls in the interval, comparing
// days in loc: d is inside when Start's day <= d < End's day.
func (iv Interval) ContainsDate(d model.Date, loc *time.Location) bool {
	first := model.DateOf(iv.Start.In(loc))
	last := model.DateOf(iv.End.In(loc))
	return !d.Before(first) && d.Before(last)
}

// Calculator holds the local timezone and clock shared by the cycle, lock,
// recurrence and ranking rules.
type Calculator struct {
	loc *time.Location
	now Clock
}

func NewCalculator(loc *time.Location, clock Clock) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = time.Now
	}
	return &Calculator{loc: loc, now: clock}
}

func (c *Calculator) Location() *time.Location { return c.loc }

// Now returns the clock's current time in the local timezone.
func (c *Calculator) Now() time.Time { return c.now().In(c.loc) }

// Today returns the current local calendar day.
func (c *Calculator) Today() model.Date { return model.DateOf(c.Now()) }

// CurrentCycleStart returns the most recent Monday 08:00 local time at or
// before now.
func (c *Calculator) CurrentCycleStart(now time.Time) time.Time {
	now = now.In(c.loc)
	today := model.DateOf(now)
	sinceMonday := (int(today.Weekday()) - int(cycleWeekday) + 7) % 7
	anchor := today.AddDays(-sinceMonday).At(c.loc, cycleAnchorHour, 0, 0)
	if now.Before(anchor) {
		anchor = model.DateOf(anchor).AddDays(-7).At(c.loc, cycleAnchorHour, 0, 0)
	}
	return anchor
}

// CurrentCycleInterval is [cycle start, cycle start + 7 days).
func (c *Calculator) CurrentCycleInterval(now time.Time) Interval {
	start := c.CurrentCycleStart(now)
	end := model.DateOf(start).AddDays(7).At(c.loc, cycleAnchorHour, 0, 0)
	return Interval{Start: start, End: end}
}

// PreviousCycleInterval is the cycle that ended at the current cycle start.
func (c *Calculator) PreviousCycleInterval(now time.Time) Interval {
	end := c.CurrentCycleStart(now)
	start := model.DateOf(end).AddDays(-7).At(c.loc, cycleAnchorHour, 0, 0)
	return Interval{Start: start, End: end}
}

// MonthInterval is [first day of now's month 00:00, first day of next month 00:00).
func (c *Calculator) MonthInterval(now time.Time) Interval {
	now = now.In(c.loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.loc)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}

// MonthOf returns the interval covering the given calendar month.
func (c *Calculator) MonthOf(year int, month time.Month) Interval {
	start := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}

// LockDeadline returns when a task published on d stops being editable by
// its owners: the following Monday 08:00 for a Sunday, otherwise the
// following day at 23:59:59.
func (c *Calculator) LockDeadline(d model.Date) time.Time {
	next := d.AddDays(1)
	if d.Weekday() == time.Sunday {
		return next.At(c.loc, cycleAnchorHour, 0, 0)
	}
	return next.At(c.loc, 23, 59, 59)
}

// TaskLockDeadline returns the deadline for tasks that carry a publish date.
func (c *Calculator) TaskLockDeadline(t *model.Task) (time.Time, bool) {
	switch s := t.Schedule(c.loc).(type) {
	case model.FixedDate:
		return c.LockDeadline(s.Date), true
	case model.Recurring:
		if !s.PublishDate.IsZero() {
			return c.LockDeadline(s.PublishDate), true
		}
	}
	return time.Time{}, false
}

// IsLocked is true once now is after the task's lock deadline. Tasks without
// a readable publish date are never locked.
func (c *Calculator) IsLocked(t *model.Task, now time.Time) bool {
	deadline, ok := c.TaskLockDeadline(t)
	return ok && now.After(deadline)
}
