package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fixia-app/FixiaCore/app/controllers"
	"github.com/fixia-app/FixiaCore/app/repository"
	"github.com/fixia-app/FixiaCore/internal/pkg/billing"
	"github.com/fixia-app/FixiaCore/internal/pkg/cache"
	"github.com/fixia-app/FixiaCore/internal/pkg/database"
	"github.com/fixia-app/FixiaCore/internal/pkg/env"
	"github.com/fixia-app/FixiaCore/internal/pkg/jobs"
	"github.com/fixia-app/FixiaCore/internal/pkg/notify"
	"github.com/fixia-app/FixiaCore/internal/pkg/router"
	"github.com/fixia-app/FixiaCore/internal/pkg/scheduler"
)

func main() {
	app, sched := NewApplication()

	// Graceful shutdown: stop cadences first so no sweep runs against a
	// closing server.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		sched.Shutdown()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *scheduler.Scheduler) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	// Domain services. Everything downstream of the repositories is
	// constructor-injected so it can be assembled differently in tests.
	gateway := billing.NewGatewayClientFromEnv()
	ledger := billing.NewLedger(repos.Subscription, repos.User)
	push := notify.NewPushService(repos.PushToken, notify.NewProviderFromEnv())
	dispatcher := notify.NewDispatcher(repos.Notification, push)
	reconciler := billing.NewReconciler(repos.Payment, repos.User, gateway, ledger, dispatcher)
	sweeps := jobs.NewService(repos.Subscription, repos.Payment, repos.Notification, ledger, gateway, dispatcher)

	sched := newScheduler(sweeps)
	sched.Initialize()

	app := fiber.New(fiber.Config{
		AppName:      "Fixia",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	router.InstallRouter(app, router.Deps{
		Webhook:       controllers.NewWebhookController(reconciler),
		Notifications: controllers.NewNotificationController(dispatcher, push),
		Billing:       controllers.NewBillingController(gateway, ledger, repos.User, repos.Subscription),
		Scheduler:     controllers.NewAdminSchedulerController(sched),
		Stats:         controllers.NewAdminStatsController(),
	})

	return app, sched
}

func newScheduler(sweeps *jobs.Service) *scheduler.Scheduler {
	sched := scheduler.New()
	sched.Register("subscription_reminders", 6*time.Hour, sweeps.ReminderSweep)
	sched.Register("subscription_expiry", 12*time.Hour, sweeps.ExpirySweep)
	sched.Register("payment_reconcile", 30*time.Minute, sweeps.PaymentReconcileSweep)
	sched.Register("notification_cleanup", 24*time.Hour, sweeps.NotificationCleanupSweep)
	sched.Register("scheduler_stats", 5*time.Minute, schedulerHeartbeat(sched))
	return sched
}

// schedulerHeartbeat publishes the registry state into the cache so external
// monitors can detect a stalled scheduler without hitting the admin API.
func schedulerHeartbeat(sched *scheduler.Scheduler) scheduler.JobFunc {
	return func(ctx context.Context) error {
		status := sched.Status()
		payload, err := json.Marshal(status)
		if err != nil {
			return err
		}
		return cache.Set("scheduler:heartbeat", string(payload), 15*time.Minute)
	}
}
