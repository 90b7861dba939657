package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contentboard/internal/model"
	"contentboard/internal/schedule"
	"contentboard/pkg/logger"
	"contentboard/pkg/rbac"
	"contentboard/pkg/util"
)

// IdentityKey is the gin context key holding the caller's util.Identity.
const IdentityKey = "identity"

// ProfileReader reads one user profile.
type ProfileReader interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

type ScheduleHandler struct {
	svc      *schedule.Service
	profiles ProfileReader
	logger   *zap.Logger
}

// NewScheduleHandler builds the task handlers. profiles may be nil.
func NewScheduleHandler(svc *schedule.Service, profiles ProfileReader, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, profiles: profiles, logger: logger}
}

// identity reads the authenticated caller, answering 401 when absent.
func (h *ScheduleHandler) identity(c *gin.Context) (util.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return util.Identity{}, false
	}
	id, ok := v.(util.Identity)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid identity"})
		return util.Identity{}, false
	}
	return id, true
}

func actorOf(id util.Identity) schedule.Actor {
	return schedule.Actor{
		UserID: id.ID,
		Admin:  rbac.HasPermission(id.Role, rbac.PermissionOverrideStatus),
	}
}

// writeError maps domain errors to status codes.
func (h *ScheduleHandler) writeError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, schedule.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, schedule.ErrTaskLocked):
		status = http.StatusLocked
	case errors.Is(err, schedule.ErrNotResponsible):
		status = http.StatusForbidden
	case errors.Is(err, schedule.ErrInvalidStatus),
		errors.Is(err, schedule.ErrInvalidTask),
		errors.Is(err, schedule.ErrInvalidPeriod):
		status = http.StatusBadRequest
	}

	log := logger.WithTrace(c.Request.Context(), h.logger)
	if status == http.StatusInternalServerError {
		log.Error(op+": failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	log.Warn(op+": rejected", zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

// Me handles GET /me. The display name comes from the profile store when
// available; token claims are enough otherwise.
func (h *ScheduleHandler) Me(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	resp := gin.H{
		"id":    id.ID,
		"email": id.Email,
		"role":  id.Role,
	}
	if h.profiles != nil {
		u, err := h.profiles.Get(c.Request.Context(), id.ID)
		if err != nil {
			logger.WithTrace(c.Request.Context(), h.logger).Warn("Me: profile lookup failed", zap.String("user_id", id.ID), zap.Error(err))
		} else {
			resp["name"] = u.Name
			if resp["email"] == "" {
				resp["email"] = u.Email
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListTasks handles GET /tasks?date=YYYY-MM-DD&mine=true
func (h *ScheduleHandler) ListTasks(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	var q schedule.ListQuery
	if raw := c.Query("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		q.Date = d
	}
	q.Mine, _ = strconv.ParseBool(c.DefaultQuery("mine", "false"))

	tasks, err := h.svc.List(c.Request.Context(), actorOf(id), q)
	if err != nil {
		h.writeError(c, "ListTasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetTask handles GET /tasks/:id
func (h *ScheduleHandler) GetTask(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	task, err := h.svc.Get(c.Request.Context(), actorOf(id), c.Param("id"))
	if err != nil {
		h.writeError(c, "GetTask", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTask handles POST /tasks
func (h *ScheduleHandler) CreateTask(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var in schedule.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	task, err := h.svc.Create(c.Request.Context(), actorOf(id), in)
	if err != nil {
		h.writeError(c, "CreateTask", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask handles PUT /tasks/:id
func (h *ScheduleHandler) UpdateTask(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var in schedule.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	task, err := h.svc.Update(c.Request.Context(), actorOf(id), c.Param("id"), in)
	if err != nil {
		h.writeError(c, "UpdateTask", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeactivateTask handles DELETE /tasks/:id
func (h *ScheduleHandler) DeactivateTask(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), actorOf(id), c.Param("id")); err != nil {
		h.writeError(c, "DeactivateTask", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	UserID string `json:"userId"`
}

// ChangeStatus handles POST /tasks/:id/status
func (h *ScheduleHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	view, err := h.svc.ChangeStatus(c.Request.Context(), actorOf(id), c.Param("id"), req.Status, req.UserID)
	if err != nil {
		h.writeError(c, "ChangeStatus", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Calendar handles GET /calendar?month=YYYY-MM&mine=true; the current month by default.
func (h *ScheduleHandler) Calendar(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	now := h.svc.Calculator().Now()
	year, month := now.Year(), now.Month()
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
			return
		}
		year, month = t.Year(), t.Month()
	}
	mine, _ := strconv.ParseBool(c.DefaultQuery("mine", "false"))

	cal, err := h.svc.Calendar(c.Request.Context(), actorOf(id), year, month, mine)
	if err != nil {
		h.writeError(c, "Calendar", err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// Rankings handles GET /rankings?period=week|month
func (h *ScheduleHandler) Rankings(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}
	period := c.DefaultQuery("period", schedule.PeriodWeek)
	ranking, err := h.svc.Rankings(c.Request.Context(), period)
	if err != nil {
		h.writeError(c, "Rankings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"period":    period,
		"interval":  ranking.Interval,
		"standings": ranking.Standings,
	})
}

// Cycle handles GET /cycle
func (h *ScheduleHandler) Cycle(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}
	iv := h.svc.Cycle()
	c.JSON(http.StatusOK, gin.H{"start": iv.Start, "end": iv.End})
}
