package billing

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fixia-app/FixiaCore/app/models"
)

// In-memory repository doubles shared by the ledger and reconciler tests.

type fakeUserRepo struct {
	users   map[uint]*models.User
	byEmail map[string]*models.User
	updated []*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uint]*models.User{}, byEmail: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
		r.byEmail[u.Email] = u
	}
	return r
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.users[user.ID] = user
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByAPIKeyHash(hash string) (*models.User, error) {
	for _, u := range r.users {
		if u.APIKeyHash == hash {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.users[user.ID] = user
	r.updated = append(r.updated, user)
	return nil
}

func (r *fakeUserRepo) List(offset, limit int) ([]models.User, error) { return nil, nil }
func (r *fakeUserRepo) Count() (int64, error)                         { return int64(len(r.users)), nil }

func (r *fakeUserRepo) ListProviderIDs() ([]uint, error) {
	var ids []uint
	for id, u := range r.users {
		if u.IsProvider() && u.Status != models.STATUS_DISABLED {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeSubscriptionRepo struct {
	nextID  uint
	current map[uint]*models.Subscription

	createdActive []*models.Subscription
	cancelled     []uint
	stateUpdates  []string
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{nextID: 1, current: map[uint]*models.Subscription{}}
}

func (r *fakeSubscriptionRepo) Create(sub *models.Subscription) error {
	sub.ID = r.nextID
	r.nextID++
	r.current[sub.UserID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(id uint) (*models.Subscription, error) {
	for _, s := range r.current {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubscriptionRepo) GetCurrentByUserID(userID uint) (*models.Subscription, error) {
	if s, ok := r.current[userID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubscriptionRepo) Update(sub *models.Subscription) error {
	r.current[sub.UserID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) CreateActive(sub *models.Subscription) error {
	sub.State = models.SubscriptionStateActive
	if err := r.Create(sub); err != nil {
		return err
	}
	r.createdActive = append(r.createdActive, sub)
	return nil
}

func (r *fakeSubscriptionRepo) CancelWithFlag(subID uint, userID uint, reason string) error {
	r.cancelled = append(r.cancelled, subID)
	if s, ok := r.current[userID]; ok && s.ID == subID {
		s.State = models.SubscriptionStateCancelled
		s.CancelReason = reason
	}
	return nil
}

func (r *fakeSubscriptionRepo) UpdateStateAndFlag(subID uint, userID uint, state string, active bool) error {
	r.stateUpdates = append(r.stateUpdates, state)
	if s, ok := r.current[userID]; ok && s.ID == subID {
		s.State = state
	}
	return nil
}

func liveState(state string) bool {
	return state == models.SubscriptionStateActive || state == models.SubscriptionStateGracePeriod
}

func (r *fakeSubscriptionRepo) FindExpiredActive(cutoff time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range r.current {
		if liveState(s.State) && s.ExpiresAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) FindExpiringBetween(from, to time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range r.current {
		if liveState(s.State) && !s.ExpiresAt.Before(from) && s.ExpiresAt.Before(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakePaymentRepo struct {
	nextID       uint
	byExternalID map[string]*models.Payment
	updated      []*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{nextID: 1, byExternalID: map[string]*models.Payment{}}
}

func (r *fakePaymentRepo) CreateIfNotExists(payment *models.Payment) (bool, *models.Payment, error) {
	if existing, ok := r.byExternalID[payment.ExternalID]; ok {
		return false, existing, nil
	}
	payment.ID = r.nextID
	r.nextID++
	r.byExternalID[payment.ExternalID] = payment
	return true, payment, nil
}

func (r *fakePaymentRepo) GetByExternalID(externalID string) (*models.Payment, error) {
	if p, ok := r.byExternalID[externalID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) Update(payment *models.Payment) error {
	r.byExternalID[payment.ExternalID] = payment
	r.updated = append(r.updated, payment)
	return nil
}

func (r *fakePaymentRepo) UpdateStateByExternalID(externalID, state string) error {
	if p, ok := r.byExternalID[externalID]; ok {
		p.State = state
	}
	return nil
}

func (r *fakePaymentRepo) FindPendingOlderThan(cutoff time.Time, limit int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.byExternalID {
		if !models.IsTerminalState(p.State) && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeGateway struct {
	payments    map[string]*GatewayPayment
	preference  *GatewayPreference
	fetchErr    error
	fetchCalls  int
	createCalls int
}

func (g *fakeGateway) FetchPayment(ctx context.Context, id string) (*GatewayPayment, error) {
	g.fetchCalls++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	if p, ok := g.payments[id]; ok {
		return p, nil
	}
	return nil, ErrPaymentNotFound
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*GatewayPreference, error) {
	g.createCalls++
	return g.preference, nil
}

type dispatched struct {
	userID   uint
	category models.NotificationCategory
	title    string
	payload  map[string]string
}

type fakeNotifier struct {
	calls []dispatched
}

func (n *fakeNotifier) Dispatch(ctx context.Context, userID uint, category models.NotificationCategory, title, body string, payload map[string]string) (*models.Notification, error) {
	n.calls = append(n.calls, dispatched{userID: userID, category: category, title: title, payload: payload})
	return &models.Notification{UserID: userID, Category: category, Title: title, Body: body}, nil
}
