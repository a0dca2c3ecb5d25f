package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
)

// NotificationInbox is implemented by database.NotificationRepository
type NotificationInbox interface {
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// NotificationHandler serves the caller's in-app notifications
type NotificationHandler struct {
	inbox  NotificationInbox
	logger *logrus.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(inbox NotificationInbox, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, logger: logger}
}

// ListNotifications returns the caller's latest notifications
// GET /api/v1/notifications?unread=true&limit=50
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			badRequest(c, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.inbox.ListForUser(c.Request.Context(), p.UserID, unreadOnly, limit)
	if err != nil {
		respondFault(c, h.logger, "list_notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead marks one of the caller's notifications read
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.inbox.MarkRead(c.Request.Context(), id, p.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Notification not found",
				"code":    "NOT_FOUND",
			})
			return
		}
		respondFault(c, h.logger, "mark_notification_read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
