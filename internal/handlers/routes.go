package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/staffhub/shift-engine/internal/middleware"
	"github.com/staffhub/shift-engine/internal/models"
)

// Router bundles the handlers mounted under /api/v1
type Router struct {
	Shifts        *ShiftHandler
	Performance   *PerformanceHandler
	Usage         *UsageHandler
	Notifications *NotificationHandler
	Admin         *AdminHandler
}

// Register mounts the API on group. auth must authenticate the caller and
// resolve the principal.
func (r Router) Register(group *gin.RouterGroup, auth ...gin.HandlerFunc) {
	api := group.Group("", auth...)

	shifts := api.Group("/shifts")
	{
		shifts.POST("", r.Shifts.CreateShift)
		shifts.POST("/recurring", r.Shifts.CreateRecurringShifts)
		shifts.GET("/:id", r.Shifts.GetShift)
		shifts.PUT("/:id", r.Shifts.UpdateShift)
		shifts.DELETE("/:id", r.Shifts.DeleteShift)
		shifts.POST("/:id/cancel", r.Shifts.CancelShift)
		shifts.POST("/:id/book", r.Shifts.BookShift)
		shifts.DELETE("/:id/book", r.Shifts.UnbookShift)
		shifts.POST("/:id/complete", r.Shifts.CompleteShift)
		shifts.POST("/:id/assignments", r.Shifts.AssignWorker)
		shifts.DELETE("/:id/assignments/:worker_id", r.Shifts.UnassignWorker)
		shifts.POST("/:id/assignments/:worker_id/complete", r.Shifts.CompleteForWorker)
		if r.Performance != nil {
			shifts.POST("/:id/assignments/:worker_id/performance", r.Performance.RecordPerformance)
			shifts.GET("/:id/performance", r.Performance.ListPerformance)
		}
	}

	if r.Usage != nil {
		api.GET("/agency/usage", r.Usage.GetUsage)
	}

	if r.Notifications != nil {
		api.GET("/notifications", r.Notifications.ListNotifications)
		api.POST("/notifications/:id/read", r.Notifications.MarkRead)
	}

	if r.Admin != nil {
		admin := api.Group("/admin", middleware.RequireRole(models.RoleSuperuser))
		admin.GET("/jobs", r.Admin.GetJobStatus)
		admin.POST("/jobs/auto-assign", r.Admin.RunAutoAssign)
	}
}
