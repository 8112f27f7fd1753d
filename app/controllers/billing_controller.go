package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/app/repository"
	"github.com/fixia-app/FixiaCore/internal/pkg/billing"
	"github.com/fixia-app/FixiaCore/internal/pkg/env"
	"github.com/fixia-app/FixiaCore/internal/pkg/usercontext"
)

// BillingController serves checkout creation and subscription status for
// provider accounts.
type BillingController struct {
	gateway billing.PaymentGateway
	ledger  *billing.Ledger
	users   repository.UserRepository
	subs    repository.SubscriptionRepository
}

func NewBillingController(gateway billing.PaymentGateway, ledger *billing.Ledger, users repository.UserRepository, subs repository.SubscriptionRepository) *BillingController {
	return &BillingController{gateway: gateway, ledger: ledger, users: users, subs: subs}
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// HandleCheckout creates a gateway payment preference for a subscription
// plan and returns the redirect URL the client sends the payer to.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	if !models.IsValidPlan(plan) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": fmt.Sprintf("Unknown plan %q", req.Plan)})
	}

	user, err := bc.users.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load account"})
	}
	if !user.IsProvider() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Subscriptions are available to provider accounts only"})
	}
	if user.IsSuspended() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Account suspended"})
	}

	baseURL := strings.TrimRight(env.GetEnv("APP_BASE_URL", "https://app.fixia.example.com"), "/")
	pref, err := bc.gateway.CreatePreference(c.Context(), billing.PreferenceRequest{
		Items: []billing.PreferenceItem{{
			Title:          fmt.Sprintf("Fixia %s plan", plan),
			Quantity:       1,
			UnitPriceCents: billing.PlanPriceCents(plan),
			Currency:       env.GetEnv("PAYMENT_CURRENCY", "ARS"),
		}},
		PayerEmail: user.Email,
		BackURLs: billing.BackURLs{
			Success: baseURL + "/payments/success",
			Failure: baseURL + "/payments/failure",
			Pending: baseURL + "/payments/pending",
		},
		Metadata: map[string]string{
			"user_id": strconv.FormatUint(uint64(user.ID), 10),
			"plan":    plan,
		},
	})
	if err != nil {
		log.Errorf("[Billing] Preference creation for user %d failed: %v", userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "bad_gateway", "message": "Payment gateway unavailable"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"preference_id": pref.ID,
		"redirect_url":  pref.RedirectURL,
		"plan":          plan,
		"amount_cents":  billing.PlanPriceCents(plan),
	})
}

// HandleSubscriptionStatus returns the caller's current subscription row and
// the denormalized access flag.
func (bc *BillingController) HandleSubscriptionStatus(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	user, err := bc.users.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load account"})
	}

	sub, err := bc.subs.GetCurrentByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"subscription": nil, "subscription_active": user.SubscriptionActive})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load subscription"})
	}

	return c.JSON(fiber.Map{
		"subscription":        sub,
		"subscription_active": user.SubscriptionActive,
	})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// HandleCancelSubscription cancels the caller's current subscription. The
// row is kept for audit; access ends immediately.
func (bc *BillingController) HandleCancelSubscription(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		req.Reason = ""
	}

	if err := bc.ledger.Cancel(c.Context(), userID, req.Reason); err != nil {
		if errors.Is(err, billing.ErrNoActiveSubscription) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "No active subscription to cancel"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to cancel subscription"})
	}
	return c.JSON(fiber.Map{"ok": true})
}
