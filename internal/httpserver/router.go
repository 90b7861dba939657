package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contentboard/internal/handler"
	"contentboard/pkg/rbac"
)

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

func NewRouter(
	scheduleHandler *handler.ScheduleHandler,
	historyHandler *handler.HistoryHandler,
	adminHandler *handler.AdminHandler,
	jwtSecret string,
	logger *zap.Logger,
	checks ...Check,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret), RequirePermission(rbac.PermissionReadSchedule))
	{
		auth.GET("/me", scheduleHandler.Me)
		auth.GET("/tasks", scheduleHandler.ListTasks)
		auth.GET("/tasks/:id", scheduleHandler.GetTask)
		auth.POST("/tasks/:id/status", RequirePermission(rbac.PermissionChangeStatus), scheduleHandler.ChangeStatus)
		auth.GET("/calendar", scheduleHandler.Calendar)
		auth.GET("/rankings", scheduleHandler.Rankings)
		auth.GET("/cycle", scheduleHandler.Cycle)
		if historyHandler != nil {
			auth.GET("/rankings/history", historyHandler.RankingHistory)
		}
	}

	admin := auth.Group("/")
	admin.Use(RequirePermission(rbac.PermissionWriteSchedule))
	{
		admin.POST("/tasks", scheduleHandler.CreateTask)
		admin.PUT("/tasks/:id", scheduleHandler.UpdateTask)
		admin.DELETE("/tasks/:id", scheduleHandler.DeactivateTask)
		if historyHandler != nil {
			admin.GET("/tasks/:id/notifications", historyHandler.TaskNotifications)
		}
	}

	if adminHandler != nil {
		ops := auth.Group("/admin")
		ops.Use(RequirePermission(rbac.PermissionReplayOutbox))
		{
			ops.GET("/outbox/failed", adminHandler.FailedEvents)
			ops.POST("/outbox/replay", adminHandler.ReplayEvent)
		}
	}

	return r
}
