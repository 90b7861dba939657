package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	contractdb "contentboard/contracts/db"
	contracts "contentboard/contracts/mq"
	"contentboard/internal/mailer"
	"contentboard/internal/model"
	"contentboard/pkg/logger"
	"contentboard/pkg/metrics"
	"contentboard/pkg/mq"
	"contentboard/pkg/trace"
)

const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// UserLookup resolves responsible user ids to profiles.
type UserLookup interface {
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// DeliveryRecorder persists a delivery attempt together with its outbox event.
type DeliveryRecorder interface {
	Record(ctx context.Context, entry *contractdb.NotificationLog, routingKey string, payload func(logID int64) interface{}) error
}

// Notifier emails a new task's responsible users.
type Notifier struct {
	users      UserLookup
	sender     mailer.Sender
	deliveries DeliveryRecorder
	from       string
	domain     string
	logger     *zap.Logger
	now        func() time.Time
}

func NewNotifier(
	users UserLookup,
	sender mailer.Sender,
	deliveries DeliveryRecorder,
	from, domain string,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{
		users:      users,
		sender:     sender,
		deliveries: deliveries,
		from:       from,
		domain:     domain,
		logger:     logger,
		now:        time.Now,
	}
}

// Notify sends the task-created email. Errors before sending (such as the
// user lookup) are returned so the event can be redelivered. Delivery errors
// are recorded and swallowed; the task is never affected.
func (n *Notifier) Notify(ctx context.Context, p contracts.ScheduleCreatedPayload) (string, error) {
	log := logger.WithTrace(ctx, n.logger).With(zap.String("task_id", p.TaskID))

	recipients, err := n.recipients(ctx, p)
	if err != nil {
		log.Error("Failed to resolve recipients", zap.Error(err))
		return "", err
	}
	if len(recipients) == 0 {
		log.Info("No recipients for task, skipping notification")
		metrics.IncrementNotification(DeliverySkipped)
		return DeliverySkipped, nil
	}

	msg, err := mailer.RenderTaskCreated(p, n.from, n.domain, recipients)
	if err != nil {
		log.Error("Failed to render notification", zap.Error(err))
		return "", fmt.Errorf("failed to render notification: %w", err)
	}

	entry := &contractdb.NotificationLog{
		TaskID:     p.TaskID,
		MessageID:  msg.ID,
		Recipients: recipients,
		Subject:    msg.Subject,
	}

	if sendErr := n.sender.Send(ctx, msg); sendErr != nil {
		log.Error("Failed to send notification",
			zap.Strings("recipients", recipients),
			zap.Error(sendErr),
		)
		metrics.IncrementNotification(DeliveryFailed)
		entry.Status = DeliveryFailed
		entry.Error = sendErr.Error()
		n.record(ctx, log, entry, mq.RoutingNotificationFailed, func(id int64) interface{} {
			return contracts.NotificationFailedPayload{
				LogID:      id,
				TaskID:     p.TaskID,
				Recipients: recipients,
				Error:      sendErr.Error(),
				FailedAt:   n.now(),
				TraceID:    trace.FromContext(ctx),
			}
		})
		return DeliveryFailed, nil
	}

	log.Info("Notification sent",
		zap.String("message_id", msg.ID),
		zap.Int("recipients", len(recipients)),
	)
	metrics.IncrementNotification(DeliverySent)
	entry.Status = DeliverySent
	n.record(ctx, log, entry, mq.RoutingNotificationSent, func(id int64) interface{} {
		return contracts.NotificationSentPayload{
			LogID:      id,
			TaskID:     p.TaskID,
			MessageID:  msg.ID,
			Recipients: recipients,
			SentAt:     n.now(),
			TraceID:    trace.FromContext(ctx),
		}
	})
	return DeliverySent, nil
}

// record logs a failure to persist; the mail has already gone out, so a
// redelivery would only send it twice.
func (n *Notifier) record(ctx context.Context, log *zap.Logger, entry *contractdb.NotificationLog, routingKey string, payload func(int64) interface{}) {
	if n.deliveries == nil {
		return
	}
	if err := n.deliveries.Record(ctx, entry, routingKey, payload); err != nil {
		log.Error("Failed to record delivery", zap.String("status", entry.Status), zap.Error(err))
	}
}

// recipients prefers the addresses stored on the task and falls back to the
// profiles of the responsible users.
func (n *Notifier) recipients(ctx context.Context, p contracts.ScheduleCreatedPayload) ([]string, error) {
	emails := uniqueEmails(p.ResponsibleEmails)
	if len(emails) > 0 || len(p.ResponsibleIDs) == 0 || n.users == nil {
		return emails, nil
	}

	users, err := n.users.ListByIDs(ctx, p.ResponsibleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up responsible users: %w", err)
	}
	addrs := make([]string, 0, len(users))
	for _, u := range users {
		addrs = append(addrs, u.Email)
	}
	return uniqueEmails(addrs), nil
}

func uniqueEmails(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || !strings.Contains(a, "@") || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
