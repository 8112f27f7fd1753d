package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/fixia-app/FixiaCore/app/controllers"
	"github.com/fixia-app/FixiaCore/internal/pkg/middleware"
)

// Deps carries the constructed controllers into the route table.
type Deps struct {
	Webhook       *controllers.WebhookController
	Notifications *controllers.NotificationController
	Billing       *controllers.BillingController
	Scheduler     *controllers.AdminSchedulerController
	Stats         *controllers.AdminStatsController
}

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Fixia API",
		})
	})

	v1 := api.Group("/v1")

	// Gateway callbacks authenticate themselves by id re-fetch, not by the
	// caller, so the webhook route carries no auth middleware.
	v1.Post("/webhooks/payments", h.deps.Webhook.HandlePaymentWebhook)

	auth := middleware.APIKeyAuthMiddleware()

	notifications := v1.Group("/notifications", auth)
	notifications.Get("/", h.deps.Notifications.HandleList)
	notifications.Get("/unread-count", h.deps.Notifications.HandleUnreadCount)
	notifications.Post("/:id/read", h.deps.Notifications.HandleMarkRead)

	v1.Post("/push/tokens", auth, h.deps.Notifications.HandleRegisterToken)

	billing := v1.Group("/billing", auth)
	billing.Post("/checkout", h.deps.Billing.HandleCheckout)
	billing.Get("/subscription", h.deps.Billing.HandleSubscriptionStatus)
	billing.Post("/subscription/cancel", h.deps.Billing.HandleCancelSubscription)

	admin := v1.Group("/admin", auth, middleware.RequireAdmin)
	admin.Get("/scheduler", h.deps.Scheduler.HandleStatus)
	admin.Post("/scheduler/jobs/:name/run", h.deps.Scheduler.HandleRunJob)
	admin.Post("/scheduler/jobs/:name/start", h.deps.Scheduler.HandleStartJob)
	admin.Post("/scheduler/jobs/:name/stop", h.deps.Scheduler.HandleStopJob)
	admin.Get("/stats", h.deps.Stats.HandlePlatformStats)
}
