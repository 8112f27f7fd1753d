package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/app/repository"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ErrNoActiveSubscription is returned by Cancel when the user holds no
// cancellable subscription.
var ErrNoActiveSubscription = errors.New("no active subscription")

// Ledger owns the subscription state machine and is the only writer of the
// denormalized subscription_active flag. Every transition commits the
// subscription state and the flag together.
type Ledger struct {
	subs  repository.SubscriptionRepository
	users repository.UserRepository
}

// NewLedger creates a ledger from injected repositories.
func NewLedger(subs repository.SubscriptionRepository, users repository.UserRepository) *Ledger {
	return &Ledger{subs: subs, users: users}
}

// NewLedgerFromDB creates a ledger from a GORM DB handle.
func NewLedgerFromDB(db *gorm.DB) *Ledger {
	return NewLedger(repository.NewSubscriptionRepository(db), repository.NewUserRepository(db))
}

// Activate grants or renews a paid-tier subscription after an approved
// payment. Idempotent: when the current subscription is already active with
// an equal-or-later expiration, nothing is written and the existing row is
// returned. Otherwise a new row is appended (reactivation never mutates old
// rows) and the profile flag is raised atomically with it.
func (l *Ledger) Activate(ctx context.Context, userID uint, plan string, payment *models.Payment) (*models.Subscription, error) {
	_ = ctx
	p := normalizePlan(plan)
	if userID == 0 || p == "" {
		return nil, fmt.Errorf("user_id and a valid plan are required, got plan %q", plan)
	}

	start := time.Now()
	if payment != nil && payment.PaidAt != nil {
		start = *payment.PaidAt
	}
	expiry := models.ExpiryFor(p, start)

	current, err := l.subs.GetCurrentByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if current != nil && current.State == models.SubscriptionStateActive && !current.ExpiresAt.Before(expiry) {
		log.Infof("[Ledger] Activation no-op for user %d: subscription %d already active until %s", userID, current.ID, current.ExpiresAt)
		return current, nil
	}

	sub := &models.Subscription{
		UserID:     userID,
		Plan:       p,
		StartsAt:   start,
		ExpiresAt:  expiry,
		PriceCents: PlanPriceCents(p),
		Currency:   "ARS",
	}
	if payment != nil {
		sub.PaymentMethod = payment.PaymentMethod
		if payment.Currency != "" {
			sub.Currency = payment.Currency
		}
		if payment.AmountCents > 0 {
			sub.PriceCents = payment.AmountCents
		}
	}

	if err := l.subs.CreateActive(sub); err != nil {
		return nil, err
	}
	log.Infof("[Ledger] Activated plan %s for user %d, subscription %d expires %s", p, userID, sub.ID, sub.ExpiresAt)
	return sub, nil
}

// Cancel marks the current subscription cancelled and revokes the gate
// immediately. The row is kept for audit.
func (l *Ledger) Cancel(ctx context.Context, userID uint, reason string) error {
	_ = ctx
	if userID == 0 {
		return errors.New("user_id is required")
	}

	current, err := l.subs.GetCurrentByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveSubscription
		}
		return err
	}
	if current.State != models.SubscriptionStateActive && current.State != models.SubscriptionStateGracePeriod {
		return ErrNoActiveSubscription
	}

	if err := l.subs.CancelWithFlag(current.ID, userID, reason); err != nil {
		return err
	}
	log.Infof("[Ledger] Cancelled subscription %d for user %d (reason: %s)", current.ID, userID, reason)
	return nil
}

// MarkGracePeriod transitions a lapsed subscription into the grace window.
// Access stays nominally active; only the state becomes observable as grace.
func (l *Ledger) MarkGracePeriod(ctx context.Context, subscriptionID uint, userID uint) error {
	_ = ctx
	if subscriptionID == 0 || userID == 0 {
		return errors.New("subscription_id and user_id are required")
	}
	if err := l.subs.UpdateStateAndFlag(subscriptionID, userID, models.SubscriptionStateGracePeriod, true); err != nil {
		return err
	}
	log.Infof("[Ledger] Subscription %d for user %d entered grace period", subscriptionID, userID)
	return nil
}

// MarkExpired transitions a subscription to expired and clears the gate,
// both atomically. Invoked by the expiry sweep once the grace window is over.
func (l *Ledger) MarkExpired(ctx context.Context, subscriptionID uint, userID uint) error {
	_ = ctx
	if subscriptionID == 0 || userID == 0 {
		return errors.New("subscription_id and user_id are required")
	}
	if err := l.subs.UpdateStateAndFlag(subscriptionID, userID, models.SubscriptionStateExpired, false); err != nil {
		return err
	}
	log.Infof("[Ledger] Marked subscription %d expired for user %d", subscriptionID, userID)
	return nil
}

// ReconcileFlag recomputes the profile gate from the stored subscription and
// repairs any divergence. Run by the expiry sweep; a divergence is a bug
// elsewhere, so it is logged loudly.
func (l *Ledger) ReconcileFlag(ctx context.Context, userID uint) error {
	_ = ctx
	user, err := l.users.GetByID(userID)
	if err != nil {
		return err
	}

	// Grace keeps access nominally active; only a fully lapsed or
	// terminated subscription drops the gate.
	want := false
	now := time.Now()
	current, err := l.subs.GetCurrentByUserID(userID)
	if err == nil {
		want = current.IsActiveAt(now) || current.InGraceAt(now)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if user.SubscriptionActive == want {
		return nil
	}
	log.Warnf("[Ledger] Repairing diverged subscription flag for user %d: %t -> %t", userID, user.SubscriptionActive, want)
	user.SubscriptionActive = want
	return l.users.Update(user)
}
