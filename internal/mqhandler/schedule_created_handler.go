package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	contracts "contentboard/contracts/mq"
	"contentboard/pkg/logger"
	"contentboard/pkg/metrics"
	"contentboard/pkg/trace"
	"contentboard/pkg/util"
)

const scheduleCreatedHandlerName = "schedule_created_notify"

// Notifier sends the email for a created task.
type Notifier interface {
	Notify(ctx context.Context, p contracts.ScheduleCreatedPayload) (string, error)
}

// OnceGuard drops events that were already handled.
type OnceGuard interface {
	AcquireOnce(ctx context.Context, handler string, key string) bool
	Release(ctx context.Context, handler string, key string)
}

// RetryTracker counts redeliveries per event.
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type ScheduleCreatedHandler struct {
	notifier   Notifier
	guard      OnceGuard
	retries    RetryTracker
	maxRetries int64
	logger     *zap.Logger
}

func NewScheduleCreatedHandler(
	notifier Notifier,
	guard OnceGuard,
	retries RetryTracker,
	maxRetries int,
	logger *zap.Logger,
) *ScheduleCreatedHandler {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ScheduleCreatedHandler{
		notifier:   notifier,
		guard:      guard,
		retries:    retries,
		maxRetries: int64(maxRetries),
		logger:     logger,
	}
}

// Handle returns an error only when the event should be requeued.
func (h *ScheduleCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p contracts.ScheduleCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ScheduleCreatedPayload, dropping", zap.Error(err))
		return nil
	}
	if trace.FromContext(ctx) == "" && p.TraceID != "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger).With(zap.String("task_id", p.TaskID))

	if p.TaskID == "" {
		log.Warn("schedule.created without task id, dropping")
		return nil
	}

	log.Info("Handling schedule.created event", zap.Strings("responsible_ids", p.ResponsibleIDs))

	if h.guard != nil && !h.guard.AcquireOnce(ctx, scheduleCreatedHandlerName, p.TaskID) {
		metrics.IncrementNotification("duplicate")
		return nil
	}

	retryKey := util.FormatRetryKey(scheduleCreatedHandlerName, p.TaskID)
	outcome, err := h.notifier.Notify(ctx, p)
	if err == nil {
		if h.retries != nil {
			_ = h.retries.Reset(ctx, retryKey)
		}
		log.Debug("schedule.created handled", zap.String("outcome", outcome))
		return nil
	}

	retryable, errType := util.IsRetryableError(err)
	if !retryable || h.retries == nil {
		log.Error("Notification failed permanently",
			zap.String("error_type", errType),
			zap.Error(err),
		)
		return nil
	}

	count, cErr := h.retries.IncrementAndGet(ctx, retryKey)
	if cErr != nil {
		// without a counter the requeue loop has no bound
		log.Error("Failed to count retry, giving up",
			zap.String("error_type", errType),
			zap.Error(err),
			zap.NamedError("counter_error", cErr),
		)
		return nil
	}
	if count >= h.maxRetries {
		log.Error("Notification retries exhausted, giving up",
			zap.Int64("attempts", count),
			zap.String("error_type", errType),
			zap.Error(err),
		)
		_ = h.retries.Reset(ctx, retryKey)
		return nil
	}

	if h.guard != nil {
		h.guard.Release(ctx, scheduleCreatedHandlerName, p.TaskID)
	}
	log.Warn("Notification failed, requeueing",
		zap.Int64("attempt", count),
		zap.String("error_type", errType),
		zap.Error(err),
	)
	return err
}
