package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// Reminder urgency levels, graduated towards expiration.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// reminderDedupeWindow suppresses a repeated (user, day-offset) reminder.
const reminderDedupeWindow = 24 * time.Hour

// reminderBucket is one exact-day reminder slot before expiration.
type reminderBucket struct {
	daysLeft int
	urgency  string
}

var reminderBuckets = []reminderBucket{
	{daysLeft: 7, urgency: UrgencyLow},
	{daysLeft: 3, urgency: UrgencyMedium},
	{daysLeft: 1, urgency: UrgencyHigh},
}

// ReminderSweep notifies holders of subscriptions nearing expiration and, at
// critical urgency, those inside the post-expiration grace window. Day
// distances truncate to whole days, so each subscription matches exactly one
// bucket per day and the sweep must run at least daily to hit every bucket.
// Re-running within the same day re-notifies nobody.
func (s *Service) ReminderSweep(ctx context.Context) error {
	now := s.now()

	for _, bucket := range reminderBuckets {
		from := now.Add(time.Duration(bucket.daysLeft) * 24 * time.Hour)
		to := from.Add(24 * time.Hour)

		subs, err := s.subs.FindExpiringBetween(from, to)
		if err != nil {
			return fmt.Errorf("reminder sweep query (%d days): %w", bucket.daysLeft, err)
		}

		for i := range subs {
			s.sendReminder(ctx, &subs[i], now, bucket.daysLeft, bucket.urgency)
		}
	}

	// Grace window: expired within the last 7 days, whether the expiry
	// sweep has already moved the row into grace_period or not.
	graceSubs, err := s.subs.FindExpiringBetween(now.Add(-models.GracePeriod), now)
	if err != nil {
		return fmt.Errorf("reminder sweep grace query: %w", err)
	}
	for i := range graceSubs {
		sub := &graceSubs[i]
		daysOver := int(now.Sub(sub.ExpiresAt).Hours() / 24)
		s.sendGraceReminder(ctx, sub, now, daysOver)
	}

	return nil
}

func (s *Service) sendReminder(ctx context.Context, sub *models.Subscription, now time.Time, daysLeft int, urgency string) {
	dedupeKey := fmt.Sprintf("renewal_reminder:%d", daysLeft)
	if s.alreadyReminded(sub.UserID, dedupeKey, now) {
		return
	}

	title := "Subscription renewal reminder"
	body := fmt.Sprintf("Your %s plan expires in %d days, on %s.", sub.Plan, daysLeft, sub.ExpiresAt.Format("2006-01-02"))
	if daysLeft == 1 {
		body = fmt.Sprintf("Your %s plan expires tomorrow, on %s.", sub.Plan, sub.ExpiresAt.Format("2006-01-02"))
	}

	if _, err := s.dispatcher.DispatchDeduped(ctx, sub.UserID, models.CategorySystem, title, body,
		map[string]string{
			"reminder":  "renewal",
			"days_left": fmt.Sprint(daysLeft),
			"urgency":   urgency,
		}, dedupeKey,
	); err != nil {
		log.Errorf("[Jobs] Renewal reminder (%d days) for user %d failed: %v", daysLeft, sub.UserID, err)
	}
}

func (s *Service) sendGraceReminder(ctx context.Context, sub *models.Subscription, now time.Time, daysOver int) {
	dedupeKey := fmt.Sprintf("grace_reminder:%d", daysOver)
	if s.alreadyReminded(sub.UserID, dedupeKey, now) {
		return
	}

	daysRemaining := int(models.GracePeriod/(24*time.Hour)) - daysOver
	body := fmt.Sprintf("Your %s plan expired on %s. You have %d days of grace access left before your profile is downgraded.",
		sub.Plan, sub.ExpiresAt.Format("2006-01-02"), daysRemaining)

	if _, err := s.dispatcher.DispatchDeduped(ctx, sub.UserID, models.CategorySystem,
		"Subscription expired - grace period", body,
		map[string]string{
			"reminder":  "grace",
			"days_over": fmt.Sprint(daysOver),
			"urgency":   UrgencyCritical,
		}, dedupeKey,
	); err != nil {
		log.Errorf("[Jobs] Grace reminder for user %d failed: %v", sub.UserID, err)
	}
}

// alreadyReminded checks the per-(user, offset) dedupe window. A failed
// lookup counts as already-sent: better one missed reminder than a duplicate
// storm when the store misbehaves.
func (s *Service) alreadyReminded(userID uint, dedupeKey string, now time.Time) bool {
	exists, err := s.notifications.ExistsDedupe(userID, dedupeKey, now.Add(-reminderDedupeWindow))
	if err != nil {
		log.Errorf("[Jobs] Reminder dedupe lookup for user %d failed: %v", userID, err)
		return true
	}
	return exists
}
