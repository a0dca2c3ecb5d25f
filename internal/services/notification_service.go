package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
)

// NotificationSink delivers a message to one user
type NotificationSink interface {
	Notify(ctx context.Context, userID uuid.UUID, subject, message, url string) error
}

// NotificationStore persists in-app notifications.
// Implemented by database.NotificationRepository.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// StoreNotificationSink writes notifications to the in-app inbox
type StoreNotificationSink struct {
	store NotificationStore
}

// NewStoreNotificationSink creates a sink backed by the notifications table
func NewStoreNotificationSink(store NotificationStore) *StoreNotificationSink {
	return &StoreNotificationSink{store: store}
}

// Notify stores the notification
func (s *StoreNotificationSink) Notify(ctx context.Context, userID uuid.UUID, subject, message, url string) error {
	return s.store.Create(ctx, &models.Notification{
		UserID:  userID,
		Subject: subject,
		Message: message,
		URL:     url,
	})
}

// MultiSink delivers to every sink and joins their errors
type MultiSink []NotificationSink

// Notify delivers to each sink in order; one failing sink does not stop the others
func (m MultiSink) Notify(ctx context.Context, userID uuid.UUID, subject, message, url string) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, userID, subject, message, url); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotificationDispatcher signals users after a committed state change.
// Delivery is best effort: failures are logged and never returned.
type NotificationDispatcher struct {
	sink    NotificationSink
	logger  *logrus.Logger
	timeout time.Duration
}

// NewNotificationDispatcher creates a dispatcher. A nil sink disables delivery.
func NewNotificationDispatcher(sink NotificationSink, logger *logrus.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		sink:    sink,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Send notifies one user
func (d *NotificationDispatcher) Send(ctx context.Context, userID uuid.UUID, subject, message, url string) {
	if d == nil || d.sink == nil {
		return
	}

	// the request may already be finishing; delivery gets its own deadline
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.sink.Notify(sendCtx, userID, subject, message, url); err != nil {
		d.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"subject": subject,
			"error":   err.Error(),
		}).Warn("Failed to deliver notification")
	}
}

// SendAll notifies each user once
func (d *NotificationDispatcher) SendAll(ctx context.Context, userIDs []uuid.UUID, subject, message, url string) {
	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		d.Send(ctx, id, subject, message, url)
	}
}

func shiftURL(shiftID uuid.UUID) string {
	return fmt.Sprintf("/shifts/%s", shiftID)
}
