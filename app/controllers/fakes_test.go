package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/internal/pkg/billing"
	"github.com/fixia-app/FixiaCore/internal/pkg/cache"
	"github.com/fixia-app/FixiaCore/internal/pkg/usercontext"
)

func disableCache(t *testing.T) {
	t.Helper()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	t.Cleanup(func() { cache.SetClient(nil) })
}

// asUser fakes the auth middleware: it stamps the request with an already
// authenticated caller so handlers can be exercised directly.
func asUser(user *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			Role:       user.Role,
			IsLoggedIn: true,
			IsAdmin:    user.Role == models.ROLE_ADMIN,
		})
		return c.Next()
	}
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
	for _, u := range r.users {
		if u.APIKeyHash == hash {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(user *models.User) error       { r.users[user.ID] = user; return nil }
func (r *fakeUserRepo) List(o, l int) ([]models.User, error) { return nil, nil }
func (r *fakeUserRepo) Count() (int64, error)                { return int64(len(r.users)), nil }
func (r *fakeUserRepo) ListProviderIDs() ([]uint, error)     { return nil, nil }

type fakeSubRepo struct {
	nextID uint
	subs   []*models.Subscription
}

func (r *fakeSubRepo) add(sub *models.Subscription) {
	r.nextID++
	sub.ID = r.nextID
	r.subs = append(r.subs, sub)
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
	for _, s := range r.subs {
		if s.ID == subID {
			s.State = models.SubscriptionStateCancelled
			s.CancelReason = reason
		}
	}
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

func (r *fakeSubRepo) FindExpiredActive(cutoff time.Time) ([]models.Subscription, error) {
	return nil, nil
}

func (r *fakeSubRepo) FindExpiringBetween(from, to time.Time) ([]models.Subscription, error) {
	return nil, nil
}

type fakePaymentRepo struct {
	byExternalID map[string]*models.Payment
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
	return nil, nil
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
	for _, n := range r.stored {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) ListByUser(userID uint, offset, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for i := len(r.stored) - 1; i >= 0; i-- {
		if r.stored[i].UserID == userID {
			out = append(out, *r.stored[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(userID uint) (int64, error) {
	var count int64
	for _, n := range r.stored {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(id uint, userID uint) error {
	for _, n := range r.stored {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) ExistsDedupe(userID uint, dedupeKey string, since time.Time) (bool, error) {
	return false, nil
}

func (r *fakeNotificationRepo) DeleteReadOlderThan(cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeTokenRepo struct {
	byUser map[uint]*models.PushToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byUser: map[uint]*models.PushToken{}}
}

func (r *fakeTokenRepo) Upsert(token *models.PushToken) error {
	r.byUser[token.UserID] = token
	return nil
}

func (r *fakeTokenRepo) GetByUserID(userID uint) (*models.PushToken, error) {
	if tok, ok := r.byUser[userID]; ok {
		return tok, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTokenRepo) GetByToken(token string) (*models.PushToken, error) {
	for _, tok := range r.byUser {
		if tok.Token == token {
			return tok, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTokenRepo) ListAll(offset, limit int) ([]models.PushToken, error) { return nil, nil }

func (r *fakeTokenRepo) DeleteByUserID(userID uint) error {
	delete(r.byUser, userID)
	return nil
}

func (r *fakeTokenRepo) DeleteByToken(token string) error {
	for userID, tok := range r.byUser {
		if tok.Token == token {
			delete(r.byUser, userID)
		}
	}
	return nil
}

type fakeGateway struct {
	payments map[string]*billing.GatewayPayment
	pref     *billing.GatewayPreference

	fetchErr error
	prefErr  error

	fetchCalls []string
	prefCalls  []billing.PreferenceRequest
}

func (g *fakeGateway) FetchPayment(ctx context.Context, id string) (*billing.GatewayPayment, error) {
	g.fetchCalls = append(g.fetchCalls, id)
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	if p, ok := g.payments[id]; ok {
		return p, nil
	}
	return nil, billing.ErrPaymentNotFound
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req billing.PreferenceRequest) (*billing.GatewayPreference, error) {
	g.prefCalls = append(g.prefCalls, req)
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	return g.pref, nil
}
