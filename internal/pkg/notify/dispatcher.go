package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/app/repository"
	"github.com/fixia-app/FixiaCore/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2/log"
)

// PushSender is the delivery contract the dispatcher triggers after
// persisting; satisfied by PushService.
type PushSender interface {
	SendToUser(ctx context.Context, userID uint, msg PushMessage) (*SendReport, error)
}

// Dispatcher persists notification records and triggers best-effort push
// delivery. The stored record is the durable source of truth: a push failure
// is logged and never propagates.
type Dispatcher struct {
	notifications repository.NotificationRepository
	push          PushSender
}

// NewDispatcher creates a dispatcher from injected collaborators. push may be
// nil, which disables delivery (used in tests and offline tools).
func NewDispatcher(notifications repository.NotificationRepository, push PushSender) *Dispatcher {
	return &Dispatcher{notifications: notifications, push: push}
}

// Dispatch persists a notification and attempts push delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, userID uint, category models.NotificationCategory, title, body string, payload map[string]string) (*models.Notification, error) {
	return d.DispatchDeduped(ctx, userID, category, title, body, payload, "")
}

// DispatchDeduped is Dispatch with a dedupe key stamped on the record, used
// by the reminder sweep so re-runs can detect already-sent reminders.
func (d *Dispatcher) DispatchDeduped(ctx context.Context, userID uint, category models.NotificationCategory, title, body string, payload map[string]string, dedupeKey string) (*models.Notification, error) {
	if userID == 0 {
		return nil, fmt.Errorf("recipient user id is required")
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("unknown notification category %q", category)
	}

	payloadJSON := ""
	if len(payload) > 0 {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding notification payload: %w", err)
		}
		payloadJSON = string(b)
	}

	n := &models.Notification{
		UserID:      userID,
		Category:    category,
		Title:       title,
		Body:        body,
		PayloadJSON: payloadJSON,
		DedupeKey:   dedupeKey,
	}
	if err := d.notifications.Create(n); err != nil {
		return nil, err
	}

	if err := counter.AddDispatched(string(category)); err != nil {
		log.Debugf("[Dispatcher] Counter update failed: %v", err)
	}

	if d.push != nil {
		msg := PushMessage{
			Title:    title,
			Body:     body,
			Icon:     IconFor(category),
			DeepLink: DeepLinkFor(category, payload),
			Data:     payload,
		}
		if report, err := d.push.SendToUser(ctx, userID, msg); err != nil {
			log.Errorf("[Dispatcher] Push delivery to user %d failed: %v", userID, err)
		} else if report.FailureCount > 0 {
			log.Warnf("[Dispatcher] Push delivery to user %d: %d ok, %d failed", userID, report.SuccessCount, report.FailureCount)
		}
	}

	return n, nil
}

// ListForUser returns a page of a user's notifications, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, userID uint, offset, limit int) ([]models.Notification, error) {
	_ = ctx
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return d.notifications.ListByUser(userID, offset, limit)
}

// UnreadCount returns the number of unread notifications for a user.
func (d *Dispatcher) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	_ = ctx
	return d.notifications.CountUnread(userID)
}

// MarkRead flips the read flag on a notification owned by the user.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID uint, userID uint) error {
	_ = ctx
	return d.notifications.MarkRead(notificationID, userID)
}
