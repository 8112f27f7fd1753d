package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/internal/pkg/billing"
	"github.com/fixia-app/FixiaCore/internal/pkg/cache"
	"github.com/fixia-app/FixiaCore/internal/pkg/notify"
)

// The sweeps go through the real ledger and dispatcher; only the
// repositories and the gateway are doubled.

func disableCache(t *testing.T) {
	t.Helper()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	t.Cleanup(func() { cache.SetClient(nil) })
}

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (r *fakeUserRepo) Create(user *models.User) error { r.users[user.ID] = user; return nil }

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByAPIKeyHash(hash string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(user *models.User) error            { r.users[user.ID] = user; return nil }
func (r *fakeUserRepo) List(o, l int) ([]models.User, error)      { return nil, nil }
func (r *fakeUserRepo) Count() (int64, error)                     { return 0, nil }
func (r *fakeUserRepo) ListProviderIDs() ([]uint, error)          { return nil, nil }

type fakeSubRepo struct {
	nextID uint
	subs   []*models.Subscription

	expiredCalls []time.Time
}

func (r *fakeSubRepo) add(sub *models.Subscription) *models.Subscription {
	r.nextID++
	sub.ID = r.nextID
	r.subs = append(r.subs, sub)
	return sub
}

func (r *fakeSubRepo) Create(sub *models.Subscription) error { r.add(sub); return nil }

func (r *fakeSubRepo) GetByID(id uint) (*models.Subscription, error) {
	for _, s := range r.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubRepo) GetCurrentByUserID(userID uint) (*models.Subscription, error) {
	for i := len(r.subs) - 1; i >= 0; i-- {
		if r.subs[i].UserID == userID {
			return r.subs[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubRepo) Update(sub *models.Subscription) error { return nil }

func (r *fakeSubRepo) CreateActive(sub *models.Subscription) error {
	sub.State = models.SubscriptionStateActive
	r.add(sub)
	return nil
}

func (r *fakeSubRepo) CancelWithFlag(subID uint, userID uint, reason string) error {
	return nil
}

func (r *fakeSubRepo) UpdateStateAndFlag(subID uint, userID uint, state string, active bool) error {
	for _, s := range r.subs {
		if s.ID == subID {
			s.State = state
		}
	}
	return nil
}

func isLiveState(state string) bool {
	return state == models.SubscriptionStateActive || state == models.SubscriptionStateGracePeriod
}

func (r *fakeSubRepo) FindExpiredActive(cutoff time.Time) ([]models.Subscription, error) {
	r.expiredCalls = append(r.expiredCalls, cutoff)
	var out []models.Subscription
	for _, s := range r.subs {
		if isLiveState(s.State) && s.ExpiresAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSubRepo) FindExpiringBetween(from, to time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range r.subs {
		if isLiveState(s.State) && !s.ExpiresAt.Before(from) && s.ExpiresAt.Before(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakePaymentRepo struct {
	byExternalID map[string]*models.Payment
	pending      []models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byExternalID: map[string]*models.Payment{}}
}

func (r *fakePaymentRepo) CreateIfNotExists(p *models.Payment) (bool, *models.Payment, error) {
	if existing, ok := r.byExternalID[p.ExternalID]; ok {
		return false, existing, nil
	}
	r.byExternalID[p.ExternalID] = p
	return true, p, nil
}

func (r *fakePaymentRepo) GetByExternalID(id string) (*models.Payment, error) {
	if p, ok := r.byExternalID[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) Update(p *models.Payment) error {
	r.byExternalID[p.ExternalID] = p
	return nil
}

func (r *fakePaymentRepo) UpdateStateByExternalID(id, state string) error {
	if p, ok := r.byExternalID[id]; ok {
		p.State = state
	}
	return nil
}

func (r *fakePaymentRepo) FindPendingOlderThan(cutoff time.Time, limit int) ([]models.Payment, error) {
	return r.pending, nil
}

type fakeNotificationRepo struct {
	nextID uint
	stored []*models.Notification
}

func (r *fakeNotificationRepo) Create(n *models.Notification) error {
	r.nextID++
	n.ID = r.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.stored = append(r.stored, n)
	return nil
}

func (r *fakeNotificationRepo) GetByID(id uint) (*models.Notification, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) ListByUser(userID uint, o, l int) ([]models.Notification, error) {
	return nil, nil
}

func (r *fakeNotificationRepo) CountUnread(userID uint) (int64, error) { return 0, nil }

func (r *fakeNotificationRepo) MarkRead(id uint, userID uint) error { return nil }

func (r *fakeNotificationRepo) ExistsDedupe(userID uint, dedupeKey string, since time.Time) (bool, error) {
	for _, n := range r.stored {
		if n.UserID == userID && n.DedupeKey == dedupeKey && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) DeleteReadOlderThan(cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeGateway struct {
	payments map[string]*billing.GatewayPayment
	err      error
}

func (g *fakeGateway) FetchPayment(ctx context.Context, id string) (*billing.GatewayPayment, error) {
	if g.err != nil {
		return nil, g.err
	}
	if p, ok := g.payments[id]; ok {
		return p, nil
	}
	return nil, billing.ErrPaymentNotFound
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req billing.PreferenceRequest) (*billing.GatewayPreference, error) {
	return nil, nil
}

// newTestService assembles a sweep service over the fakes with a pinned clock.
func newTestService(now time.Time, subs *fakeSubRepo, payments *fakePaymentRepo, gateway *fakeGateway) (*Service, *fakeNotificationRepo, *fakeUserRepo) {
	users := &fakeUserRepo{users: map[uint]*models.User{}}
	notifications := &fakeNotificationRepo{}
	ledger := billing.NewLedger(subs, users)
	dispatcher := notify.NewDispatcher(notifications, nil)

	svc := NewService(subs, payments, notifications, ledger, gateway, dispatcher).
		WithClock(func() time.Time { return now })
	return svc, notifications, users
}
