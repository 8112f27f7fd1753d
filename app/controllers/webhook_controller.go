package controllers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/fixia-app/FixiaCore/internal/pkg/billing"
)

// WebhookController receives payment gateway callbacks. It never signals
// failure to the gateway: the body is only a hint and the reconciliation
// sweep re-polls anything a broken callback left behind.
type WebhookController struct {
	reconciler *billing.Reconciler
}

func NewWebhookController(reconciler *billing.Reconciler) *WebhookController {
	return &WebhookController{reconciler: reconciler}
}

// webhookPayload is the gateway callback body. Only the event type and the
// external payment id are read; everything else is re-fetched from the
// gateway before any state changes.
type webhookPayload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HandlePaymentWebhook processes POST /api/v1/webhooks/payments. It always
// answers 200 so the gateway does not enter a retry storm; processing errors
// are logged and left to the reconciliation sweep.
func (wc *WebhookController) HandlePaymentWebhook(c *fiber.Ctx) error {
	var payload webhookPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		log.Warnf("[Webhook] Unparseable callback body: %v", err)
		return c.JSON(fiber.Map{"received": true})
	}

	eventType := payload.Type
	if eventType == "" {
		eventType = c.Query("type")
	}
	externalID := strings.TrimSpace(payload.Data.ID)
	if externalID == "" {
		externalID = strings.TrimSpace(c.Query("data.id"))
	}

	if externalID == "" {
		log.Warnf("[Webhook] Callback without payment id (type=%s action=%s)", eventType, payload.Action)
		return c.JSON(fiber.Map{"received": true})
	}

	result, err := wc.reconciler.HandleEvent(c.Context(), eventType, externalID, payload.Action)
	if err != nil {
		log.Errorf("[Webhook] Processing payment %s failed: %v", externalID, err)
		return c.JSON(fiber.Map{"received": true})
	}

	if result.Duplicate {
		log.Infof("[Webhook] Duplicate callback for payment %s ignored", externalID)
	}
	return c.JSON(fiber.Map{"received": true})
}
