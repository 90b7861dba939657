package schedule

import (
	"contentboard/internal/model"
)

// OccursOn reports whether a task with schedule s exists on day d.
func OccursOn(s model.Schedule, d model.Date) bool {
	switch s := s.(type) {
	case model.FixedDate:
		return s.Date == d
	case model.Recurring:
		if !s.PublishDate.IsZero() && s.PublishDate == d {
			return true
		}
		if d.Before(s.Start) {
			return false
		}
		return s.Days.Has(d.Weekday())
	default:
		return false
	}
}

// OccurrencesBetween lists the days in [from, to) on which s occurs.
func OccurrencesBetween(s model.Schedule, from, to model.Date) []model.Date {
	var days []model.Date
	switch s := s.(type) {
	case model.FixedDate:
		if !s.Date.Before(from) && s.Date.Before(to) {
			days = append(days, s.Date)
		}
	case model.Recurring:
		for d := from; d.Before(to); d = d.AddDays(1) {
			if OccursOn(s, d) {
				days = append(days, d)
			}
		}
	}
	return days
}

// OccursOn applies the recurrence rules to t in the calculator's timezone.
func (c *Calculator) OccursOn(t *model.Task, d model.Date) bool {
	return OccursOn(t.Schedule(c.loc), d)
}
