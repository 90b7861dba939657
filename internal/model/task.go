package model

import "time"

// Task is a scheduled content item.
type Task struct {
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	Platforms         []string          `json:"platform"`
	Format            string            `json:"format"`
	Objective         string            `json:"objective"`
	Audience          string            `json:"audience"`
	ContentIdea       string            `json:"contentIdea"`
	PublishDate       Date              `json:"publishDate"`
	PublishDateRaw    string            `json:"-"` // set when the stored value could not be parsed
	RecurrenceDays    WeekdaySet        `json:"recurrenceDays"`
	ResponsibleIDs    []string          `json:"responsibleIds"`
	ResponsibleEmails []string          `json:"responsibleEmails,omitempty"`
	IsGroupTask       bool              `json:"isGroupTask"`
	Status            Status            `json:"status"`
	IndividualStatus  map[string]Status `json:"individualStatus"`
	IsActive          bool              `json:"isActive"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// IsResponsible reports whether userID is one of the task's responsible users.
func (t *Task) IsResponsible(userID string) bool {
	for _, id := range t.ResponsibleIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasBadPublishDate is true when a publish date was stored but is unreadable.
func (t *Task) HasBadPublishDate() bool {
	return t.PublishDateRaw != ""
}

// Schedule describes when a task occurs. It is one of FixedDate, Recurring
// or Unscheduled.
type Schedule interface {
	schedule()
}

// FixedDate occurs once on Date.
type FixedDate struct {
	Date Date
}

// Recurring occurs every week on Days, from Start onwards. PublishDate is set
// when the task also carries an explicit publish date.
type Recurring struct {
	Days        WeekdaySet
	Start       Date
	PublishDate Date
}

// Unscheduled never occurs.
type Unscheduled struct{}

func (FixedDate) schedule()   {}
func (Recurring) schedule()   {}
func (Unscheduled) schedule() {}

// Schedule derives the schedule variant from the stored fields. loc is used
// to take the calendar day of CreatedAt for recurrences without a publish date.
// A task whose publish date is unreadable is Unscheduled.
func (t *Task) Schedule(loc *time.Location) Schedule {
	if t.HasBadPublishDate() {
		return Unscheduled{}
	}
	if !t.RecurrenceDays.Empty() {
		start := t.PublishDate
		if start.IsZero() {
			start = DateOf(t.CreatedAt.In(loc))
		}
		return Recurring{Days: t.RecurrenceDays, Start: start, PublishDate: t.PublishDate}
	}
	if !t.PublishDate.IsZero() {
		return FixedDate{Date: t.PublishDate}
	}
	return Unscheduled{}
}

// Clone returns a copy that shares no mutable state with t.
func (t *Task) Clone() Task {
	c := *t
	c.Platforms = append([]string(nil), t.Platforms...)
	c.ResponsibleIDs = append([]string(nil), t.ResponsibleIDs...)
	c.ResponsibleEmails = append([]string(nil), t.ResponsibleEmails...)
	if t.IndividualStatus != nil {
		c.IndividualStatus = make(map[string]Status, len(t.IndividualStatus))
		for k, v := range t.IndividualStatus {
			c.IndividualStatus[k] = v
		}
	}
	return c
}
