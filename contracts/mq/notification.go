package mq

import "time"

// NotificationSentPayload reports a delivered task notification.
type NotificationSentPayload struct {
	LogID      int64     `json:"log_id"`
	TaskID     string    `json:"task_id"`
	MessageID  string    `json:"message_id"`
	Recipients []string  `json:"recipients"`
	SentAt     time.Time `json:"sent_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// NotificationFailedPayload reports a delivery that was given up on.
type NotificationFailedPayload struct {
	LogID      int64     `json:"log_id"`
	TaskID     string    `json:"task_id"`
	Recipients []string  `json:"recipients"`
	Error      string    `json:"error"`
	FailedAt   time.Time `json:"failed_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}
