package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/app/repository"
	"github.com/fixia-app/FixiaCore/internal/pkg/mail"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ErrUnresolvedRecipient signals an approved payment whose payer could not be
// matched to a provider profile: money received with no granted entitlement.
// This must surface to alerting instead of being swallowed.
var ErrUnresolvedRecipient = errors.New("approved payment has no resolvable recipient")

// Notifier is the dispatch contract the reconciler needs; satisfied by
// notify.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, userID uint, category models.NotificationCategory, title, body string, payload map[string]string) (*models.Notification, error)
}

// CallbackResult reports what a callback did.
type CallbackResult struct {
	Processed   bool
	Duplicate   bool
	Ignored     bool
	MappedState string
}

// Reconciler turns gateway callbacks into payment rows and ledger
// transitions. It never trusts the callback body beyond the payment id: the
// authoritative details are always re-fetched from the gateway.
type Reconciler struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	gateway  PaymentGateway
	ledger   *Ledger
	notifier Notifier
}

// NewReconciler creates a reconciler from injected collaborators.
func NewReconciler(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	gateway PaymentGateway,
	ledger *Ledger,
	notifier Notifier,
) *Reconciler {
	return &Reconciler{
		payments: payments,
		users:    users,
		gateway:  gateway,
		ledger:   ledger,
		notifier: notifier,
	}
}

// HandleEvent is the callback entry point. Payment events are reconciled;
// subscription/invoice sub-events are acknowledged without state change.
func (r *Reconciler) HandleEvent(ctx context.Context, eventType, externalPaymentID, reportedStatus string) (*CallbackResult, error) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "payment", "":
		return r.ProcessPaymentCallback(ctx, externalPaymentID, reportedStatus)
	default:
		log.Infof("[Reconciler] Ignoring %s event for %s (no state change)", eventType, externalPaymentID)
		return &CallbackResult{Ignored: true}, nil
	}
}

// ProcessPaymentCallback reconciles one payment callback. Duplicate ids are
// no-ops; the reported status is only a hint and the mapped state always
// comes from the authoritative gateway fetch.
func (r *Reconciler) ProcessPaymentCallback(ctx context.Context, externalPaymentID, reportedStatus string) (*CallbackResult, error) {
	pid := strings.TrimSpace(externalPaymentID)
	if pid == "" {
		return nil, errors.New("external payment id is required")
	}

	// Idempotency barrier: the first callback for an id wins, retries and
	// duplicates stop here.
	if existing, err := r.payments.GetByExternalID(pid); err == nil {
		log.Infof("[Reconciler] Duplicate callback for payment %s (state %s), skipping", pid, existing.State)
		return &CallbackResult{Duplicate: true, MappedState: existing.State}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	detail, err := r.gateway.FetchPayment(ctx, pid)
	if err != nil {
		// Transient or not-found: leave the callback for the reconcile
		// sweep, nothing is persisted from an unverified body.
		return nil, fmt.Errorf("authoritative fetch for payment %s failed (reported %q): %w", pid, reportedStatus, err)
	}

	mapped := MapGatewayStatus(detail.Status)
	switch mapped {
	case models.PaymentStateApproved:
		return r.processApproved(ctx, detail)
	case models.PaymentStateCancelled:
		return r.processCancelled(ctx, detail)
	default:
		return r.processNonApproved(ctx, detail, mapped)
	}
}

// processApproved activates the entitlement. This path fails loudly: an
// approved payment with no resolvable provider profile is an alert, not a
// log line.
func (r *Reconciler) processApproved(ctx context.Context, detail *GatewayPayment) (*CallbackResult, error) {
	user, err := r.resolveRecipient(detail)
	if err != nil {
		return nil, fmt.Errorf("payment %s approved for payer %q: %w", detail.ID, detail.PayerEmail, err)
	}

	plan := resolvePlan(detail.Metadata["plan"], detail.AmountCents)
	payment := paymentRow(detail, models.PaymentStateApproved, &user.ID)

	created, stored, err := r.payments.CreateIfNotExists(payment)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the race against a concurrent callback for the same id.
		log.Infof("[Reconciler] Payment %s persisted concurrently, skipping", detail.ID)
		return &CallbackResult{Duplicate: true, MappedState: stored.State}, nil
	}

	sub, err := r.ledger.Activate(ctx, user.ID, plan, stored)
	if err != nil {
		return nil, fmt.Errorf("activating plan %s for user %d after payment %s: %w", plan, user.ID, detail.ID, err)
	}

	stored.SubscriptionID = &sub.ID
	if err := r.payments.Update(stored); err != nil {
		log.Errorf("[Reconciler] Linking payment %s to subscription %d failed: %v", detail.ID, sub.ID, err)
	}

	if _, err := r.notifier.Dispatch(ctx, user.ID, models.CategoryPayment,
		"Subscription activated",
		fmt.Sprintf("Your %s plan is active until %s.", sub.Plan, sub.ExpiresAt.Format("2006-01-02")),
		map[string]string{"status": "approved", "payment_id": detail.ID},
	); err != nil {
		// The entitlement is granted; a failed notification never unwinds it.
		log.Errorf("[Reconciler] Activation notification for user %d failed: %v", user.ID, err)
	}

	if err := mail.SendPaymentReceipt(user.Email, sub.Plan, stored.AmountCents, stored.Currency); err != nil {
		log.Warnf("[Reconciler] Receipt mail for user %d failed: %v", user.ID, err)
	}

	return &CallbackResult{Processed: true, MappedState: models.PaymentStateApproved}, nil
}

// processNonApproved persists rejected/pending/refunded outcomes. These are
// expected results, never errors; the payer may simply retry.
func (r *Reconciler) processNonApproved(ctx context.Context, detail *GatewayPayment, mapped string) (*CallbackResult, error) {
	user, err := r.resolveRecipient(detail)
	if err != nil {
		// Without a profile there is nothing to record against; the gateway
		// keeps the authoritative trail.
		log.Infof("[Reconciler] Payment %s (%s) has no matching profile, skipping persist", detail.ID, mapped)
		return &CallbackResult{Processed: true, MappedState: mapped}, nil
	}

	payment := paymentRow(detail, mapped, &user.ID)
	if _, _, err := r.payments.CreateIfNotExists(payment); err != nil {
		return nil, err
	}

	var title, body string
	switch mapped {
	case models.PaymentStateRejected:
		title = "Payment rejected"
		body = "Your subscription payment was rejected. Please try another payment method."
	case models.PaymentStatePending:
		title = "Payment pending"
		body = "Your subscription payment is being processed. We will notify you once it is confirmed."
	}
	if title != "" {
		if _, err := r.notifier.Dispatch(ctx, user.ID, models.CategoryPayment,
			title, body,
			map[string]string{"status": mapped, "payment_id": detail.ID},
		); err != nil {
			log.Errorf("[Reconciler] %s notification for user %d failed: %v", mapped, user.ID, err)
		}
	}

	return &CallbackResult{Processed: true, MappedState: mapped}, nil
}

// processCancelled updates an existing row if one exists. No notification.
func (r *Reconciler) processCancelled(ctx context.Context, detail *GatewayPayment) (*CallbackResult, error) {
	_ = ctx
	if err := r.payments.UpdateStateByExternalID(detail.ID, models.PaymentStateCancelled); err != nil {
		return nil, err
	}
	return &CallbackResult{Processed: true, MappedState: models.PaymentStateCancelled}, nil
}

// resolveRecipient maps the payer email to a provider profile. A single
// suspension check here is authoritative for the whole billing path.
func (r *Reconciler) resolveRecipient(detail *GatewayPayment) (*models.User, error) {
	email := strings.TrimSpace(detail.PayerEmail)
	if email == "" {
		return nil, ErrUnresolvedRecipient
	}
	user, err := r.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnresolvedRecipient
		}
		return nil, err
	}
	if !user.IsProvider() || user.IsSuspended() {
		return nil, ErrUnresolvedRecipient
	}
	return user, nil
}

func paymentRow(detail *GatewayPayment, state string, userID *uint) *models.Payment {
	meta := ""
	if len(detail.Metadata) > 0 {
		meta = encodeMetadata(detail.Metadata)
	}
	return &models.Payment{
		ExternalID:      detail.ID,
		UserID:          userID,
		State:           state,
		AmountCents:     detail.AmountCents,
		Currency:        detail.Currency,
		PaymentMethod:   detail.PaymentMethod,
		PayerEmail:      detail.PayerEmail,
		PaidAt:          detail.PaidAt,
		RawMetadataJSON: meta,
	}
}
