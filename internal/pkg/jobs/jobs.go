package jobs

import (
	"time"

	"github.com/fixia-app/FixiaCore/app/repository"
	"github.com/fixia-app/FixiaCore/internal/pkg/billing"
	"github.com/fixia-app/FixiaCore/internal/pkg/notify"
)

// Service holds the business logic behind the scheduled sweeps. Every sweep
// is idempotent and safe to re-run; the scheduler only decides when they
// fire.
type Service struct {
	subs          repository.SubscriptionRepository
	payments      repository.PaymentRepository
	notifications repository.NotificationRepository
	ledger        *billing.Ledger
	gateway       billing.PaymentGateway
	dispatcher    *notify.Dispatcher

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewService creates the sweep service from injected collaborators.
func NewService(
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	notifications repository.NotificationRepository,
	ledger *billing.Ledger,
	gateway billing.PaymentGateway,
	dispatcher *notify.Dispatcher,
) *Service {
	return &Service{
		subs:          subs,
		payments:      payments,
		notifications: notifications,
		ledger:        ledger,
		gateway:       gateway,
		dispatcher:    dispatcher,
		now:           time.Now,
	}
}

// WithClock overrides the service clock (tests only).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
