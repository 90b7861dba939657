package db

import "time"

// NotificationLog is a row of notification_log
type NotificationLog struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	MessageID  string    `json:"message_id"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"` // sent / failed / skipped
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RankingSnapshot is a row of ranking_snapshots
type RankingSnapshot struct {
	ID         int64     `json:"id"`
	Period     string    `json:"period"` // week / month
	CycleStart time.Time `json:"cycle_start"`
	CycleEnd   time.Time `json:"cycle_end"`
	UserID     string    `json:"user_id"`
	Score      float64   `json:"score"`
	Rank       *int      `json:"rank,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
