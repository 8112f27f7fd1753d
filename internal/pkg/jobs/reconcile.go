package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/internal/pkg/billing"
	"github.com/gofiber/fiber/v2/log"
)

const (
	// Pending payments younger than this are still expected to resolve via
	// webhook; the sweep only picks up stragglers.
	reconcileMinAge = 30 * time.Minute

	reconcileBatchSize = 100
)

// PaymentReconcileSweep re-polls pending payments whose webhook got lost or
// failed mid-flight. State only ever moves on an authoritative gateway
// answer; fetch failures leave the row for the next run.
func (s *Service) PaymentReconcileSweep(ctx context.Context) error {
	now := s.now()

	pending, err := s.payments.FindPendingOlderThan(now.Add(-reconcileMinAge), reconcileBatchSize)
	if err != nil {
		return fmt.Errorf("payment reconcile query: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	log.Infof("[Jobs] Payment reconcile sweep re-polling %d pending payments", len(pending))

	for i := range pending {
		if err := s.reconcilePending(ctx, &pending[i]); err != nil {
			log.Errorf("[Jobs] Reconciling payment %s failed: %v", pending[i].ExternalID, err)
		}
	}
	return nil
}

func (s *Service) reconcilePending(ctx context.Context, payment *models.Payment) error {
	detail, err := s.gateway.FetchPayment(ctx, payment.ExternalID)
	if err != nil {
		return err
	}

	mapped := billing.MapGatewayStatus(detail.Status)
	if mapped == payment.State {
		return nil
	}

	payment.State = mapped
	payment.PaidAt = detail.PaidAt
	if err := s.payments.Update(payment); err != nil {
		return err
	}
	log.Infof("[Jobs] Payment %s moved to %s by reconcile sweep", payment.ExternalID, mapped)

	if mapped != models.PaymentStateApproved || payment.UserID == nil {
		return nil
	}

	// Late approval: grant the entitlement exactly as the webhook path would.
	plan := billing.ResolvePlanForPayment(payment, detail)
	sub, err := s.ledger.Activate(ctx, *payment.UserID, plan, payment)
	if err != nil {
		return fmt.Errorf("late activation for user %d: %w", *payment.UserID, err)
	}
	payment.SubscriptionID = &sub.ID
	if err := s.payments.Update(payment); err != nil {
		log.Errorf("[Jobs] Linking payment %s to subscription %d failed: %v", payment.ExternalID, sub.ID, err)
	}

	if _, err := s.dispatcher.Dispatch(ctx, *payment.UserID, models.CategoryPayment,
		"Subscription activated",
		fmt.Sprintf("Your %s plan is active until %s.", sub.Plan, sub.ExpiresAt.Format("2006-01-02")),
		map[string]string{"status": "approved", "payment_id": payment.ExternalID},
	); err != nil {
		log.Errorf("[Jobs] Late activation notification for user %d failed: %v", *payment.UserID, err)
	}
	return nil
}
