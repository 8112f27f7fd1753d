package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fixia-app/FixiaCore/internal/pkg/notify"
	"github.com/fixia-app/FixiaCore/internal/pkg/usercontext"
)

// NotificationController serves the per-user notification inbox and device
// token registration.
type NotificationController struct {
	dispatcher *notify.Dispatcher
	push       *notify.PushService
}

func NewNotificationController(dispatcher *notify.Dispatcher, push *notify.PushService) *NotificationController {
	return &NotificationController{dispatcher: dispatcher, push: push}
}

// HandleList returns the caller's notifications, newest first.
func (nc *NotificationController) HandleList(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := c.QueryInt("limit", 0)

	items, err := nc.dispatcher.ListForUser(c.Context(), userID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load notifications"})
	}

	unread, err := nc.dispatcher.UnreadCount(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count notifications"})
	}

	return c.JSON(fiber.Map{
		"notifications": items,
		"unread_count":  unread,
		"offset":        offset,
	})
}

// HandleUnreadCount returns only the unread badge count.
func (nc *NotificationController) HandleUnreadCount(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	unread, err := nc.dispatcher.UnreadCount(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count notifications"})
	}
	return c.JSON(fiber.Map{"unread_count": unread})
}

// HandleMarkRead marks one of the caller's notifications as read. Marking a
// foreign or unknown notification is a 404, not an error leak.
func (nc *NotificationController) HandleMarkRead(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid notification id"})
	}

	if err := nc.dispatcher.MarkRead(c.Context(), uint(id), userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update notification"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

type registerTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// HandleRegisterToken stores the caller's device push token, replacing any
// previous registration for the account.
func (nc *NotificationController) HandleRegisterToken(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req registerTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Token is required"})
	}

	if err := nc.push.RegisterToken(c.Context(), userID, req.Token, req.Platform); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to register token"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}
