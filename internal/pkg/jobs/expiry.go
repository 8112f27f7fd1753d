package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// ExpirySweep walks lapsed subscriptions through the tail of the lifecycle:
// rows past expiration move into grace_period (access kept), rows past the
// grace window expire. Auto-renewing subscriptions are skipped with a logged
// renewal intent.
func (s *Service) ExpirySweep(ctx context.Context) error {
	now := s.now()
	cutoff := now.Add(-models.GracePeriod)

	if err := s.enterGrace(ctx, cutoff, now); err != nil {
		return err
	}

	expired, err := s.subs.FindExpiredActive(cutoff)
	if err != nil {
		return fmt.Errorf("expiry sweep query: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}
	log.Infof("[Jobs] Expiry sweep found %d lapsed subscriptions", len(expired))

	for i := range expired {
		sub := &expired[i]

		if sub.AutoRenew {
			// Renewal is not implemented yet; a renewal attempt would charge
			// the stored payment method here. The grant stays in place for the
			// renewal, but access reflects the lapsed term until it lands.
			log.Infof("[Jobs] Subscription %d (user %d) is auto-renew, renewal intent logged", sub.ID, sub.UserID)
			if err := s.ledger.ReconcileFlag(ctx, sub.UserID); err != nil {
				log.Errorf("[Jobs] Flag reconcile for user %d failed: %v", sub.UserID, err)
			}
			continue
		}

		if err := s.ledger.MarkExpired(ctx, sub.ID, sub.UserID); err != nil {
			log.Errorf("[Jobs] Expiring subscription %d failed: %v", sub.ID, err)
			continue
		}

		if _, err := s.dispatcher.Dispatch(ctx, sub.UserID, models.CategorySystem,
			"Subscription expired",
			fmt.Sprintf("Your %s plan expired on %s. Renew to regain access to premium features.", sub.Plan, sub.ExpiresAt.Format("2006-01-02")),
			map[string]string{"reason": "subscription_expired", "subscription_id": fmt.Sprint(sub.ID)},
		); err != nil {
			log.Errorf("[Jobs] Expiry notification for user %d failed: %v", sub.UserID, err)
		}
	}
	return nil
}

// enterGrace moves freshly lapsed active rows into the grace_period state so
// the lifecycle is observable while access continues. The reminder sweep
// handles the critical notifications for these rows.
func (s *Service) enterGrace(ctx context.Context, cutoff, now time.Time) error {
	lapsed, err := s.subs.FindExpiringBetween(cutoff, now)
	if err != nil {
		return fmt.Errorf("grace entry query: %w", err)
	}

	for i := range lapsed {
		sub := &lapsed[i]
		if sub.State != models.SubscriptionStateActive || sub.AutoRenew {
			continue
		}
		if err := s.ledger.MarkGracePeriod(ctx, sub.ID, sub.UserID); err != nil {
			log.Errorf("[Jobs] Grace transition for subscription %d failed: %v", sub.ID, err)
		}
	}
	return nil
}
