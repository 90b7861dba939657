package mq

import "time"

// ScheduleCreatedPayload is published after a task document is inserted.
type ScheduleCreatedPayload struct {
	TaskID            string    `json:"task_id"`
	Type              string    `json:"type"`
	Platforms         []string  `json:"platforms"`
	Format            string    `json:"format,omitempty"`
	PublishDate       string    `json:"publish_date,omitempty"` // YYYY-MM-DD
	RecurrenceDays    []string  `json:"recurrence_days,omitempty"`
	ContentIdea       string    `json:"content_idea"`
	ResponsibleIDs    []string  `json:"responsible_ids"`
	ResponsibleEmails []string  `json:"responsible_emails,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	TraceID           string    `json:"trace_id,omitempty"`
}

// Cycle events
type RankingEntry struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank,omitempty"` // 0 when unranked
	Medal  string  `json:"medal,omitempty"`
}

type CycleClosedPayload struct {
	Period     string         `json:"period"`
	CycleStart time.Time      `json:"cycle_start"`
	CycleEnd   time.Time      `json:"cycle_end"`
	Rankings   []RankingEntry `json:"rankings"`
	TraceID    string         `json:"trace_id,omitempty"`
}
