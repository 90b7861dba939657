package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contentboard/pkg/outbox"
)

// OutboxAdmin inspects and replays outbox events.
type OutboxAdmin interface {
	GetFailedEvents(ctx context.Context, limit int) ([]*outbox.Event, error)
	Requeue(ctx context.Context, eventID int64) (*outbox.Event, error)
}

type AdminHandler struct {
	outbox OutboxAdmin
	logger *zap.Logger
}

func NewAdminHandler(outbox OutboxAdmin, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{outbox: outbox, logger: logger}
}

type eventView struct {
	ID          int64       `json:"id"`
	RoutingKey  string      `json:"routingKey"`
	AggregateID *string     `json:"aggregateId,omitempty"`
	Status      string      `json:"status"`
	RetryCount  int         `json:"retryCount"`
	Payload     interface{} `json:"payload"`
	CreatedAt   string      `json:"createdAt"`
}

func viewOf(e *outbox.Event) eventView {
	return eventView{
		ID:          e.ID,
		RoutingKey:  e.RoutingKey,
		AggregateID: e.AggregateID,
		Status:      e.Status,
		RetryCount:  e.RetryCount,
		Payload:     e.Payload,
		CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// FailedEvents lists events that exhausted their retries
// GET /admin/outbox/failed?limit=100
func (h *AdminHandler) FailedEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	events, err := h.outbox.GetFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list failed events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list failed events"})
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, viewOf(e))
	}
	c.JSON(http.StatusOK, gin.H{"events": views, "limit": limit})
}

// ReplayEvent puts an event back in the dispatch queue
// POST /admin/outbox/replay?id=xxx
func (h *AdminHandler) ReplayEvent(c *gin.Context) {
	idStr := c.Query("id")
	if idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id parameter"})
		return
	}
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return
	}

	event, err := h.outbox.Requeue(c.Request.Context(), eventID)
	if errors.Is(err, outbox.ErrEventNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Failed to replay event", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replay event"})
		return
	}

	h.logger.Info("Outbox event requeued",
		zap.Int64("event_id", eventID),
		zap.String("routing_key", event.RoutingKey),
	)
	c.JSON(http.StatusOK, gin.H{"status": "requeued", "event": viewOf(event)})
}
