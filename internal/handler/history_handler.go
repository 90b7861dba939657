package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	contractdb "contentboard/contracts/db"
	"contentboard/internal/schedule"
)

// SnapshotReader reads closed-cycle rankings.
type SnapshotReader interface {
	ListCycle(ctx context.Context, period string, cycleStart time.Time) ([]contractdb.RankingSnapshot, error)
}

// DeliveryReader reads the notification log of a task.
type DeliveryReader interface {
	ListByTask(ctx context.Context, taskID string) ([]contractdb.NotificationLog, error)
}

// HistoryHandler serves the records kept in Postgres.
type HistoryHandler struct {
	snapshots  SnapshotReader
	deliveries DeliveryReader
	calc       *schedule.Calculator
	logger     *zap.Logger
}

func NewHistoryHandler(snapshots SnapshotReader, deliveries DeliveryReader, calc *schedule.Calculator, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{snapshots: snapshots, deliveries: deliveries, calc: calc, logger: logger}
}

// RankingHistory handles GET /rankings/history?period=week&cycleStart=RFC3339.
// Without cycleStart the last closed cycle of the period is returned.
func (h *HistoryHandler) RankingHistory(c *gin.Context) {
	period := c.DefaultQuery("period", schedule.PeriodWeek)

	var start time.Time
	switch raw := c.Query("cycleStart"); {
	case raw != "":
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cycleStart must be RFC3339"})
			return
		}
		start = t
	case period == schedule.PeriodWeek:
		start = h.calc.PreviousCycleInterval(h.calc.Now()).Start
	case period == schedule.PeriodMonth:
		now := h.calc.Now()
		start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, h.calc.Location())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown period"})
		return
	}

	rows, err := h.snapshots.ListCycle(c.Request.Context(), period, start)
	if err != nil {
		h.logger.Error("RankingHistory: failed to fetch snapshot", zap.String("period", period), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ranking history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"period":     period,
		"cycleStart": start,
		"rankings":   rows,
	})
}

// TaskNotifications handles GET /tasks/:id/notifications
func (h *HistoryHandler) TaskNotifications(c *gin.Context) {
	taskID := c.Param("id")
	logs, err := h.deliveries.ListByTask(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Error("TaskNotifications: failed to fetch log", zap.String("task_id", taskID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": logs})
}
