package notify

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fixia-app/FixiaCore/app/models"
)

type fakeNotificationRepo struct {
	nextID  uint
	stored  []*models.Notification
	failing bool
}

func (r *fakeNotificationRepo) Create(n *models.Notification) error {
	if r.failing {
		return gorm.ErrInvalidDB
	}
	r.nextID++
	n.ID = r.nextID
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
	for _, n := range r.stored {
		if n.UserID == userID {
			out = append(out, *n)
		}
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

type fakeTokenRepo struct {
	byUser  map[uint]*models.PushToken
	deleted []string
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byUser: map[uint]*models.PushToken{}}
}

func (r *fakeTokenRepo) Upsert(token *models.PushToken) error {
	r.byUser[token.UserID] = token
	return nil
}

func (r *fakeTokenRepo) GetByUserID(userID uint) (*models.PushToken, error) {
	if t, ok := r.byUser[userID]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTokenRepo) GetByToken(token string) (*models.PushToken, error) {
	for _, t := range r.byUser {
		if t.Token == token {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTokenRepo) ListAll(offset, limit int) ([]models.PushToken, error) {
	var all []models.PushToken
	for _, t := range r.byUser {
		all = append(all, *t)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeTokenRepo) DeleteByUserID(userID uint) error {
	delete(r.byUser, userID)
	return nil
}

func (r *fakeTokenRepo) DeleteByToken(token string) error {
	for id, t := range r.byUser {
		if t.Token == token {
			delete(r.byUser, id)
		}
	}
	r.deleted = append(r.deleted, token)
	return nil
}

type fakeProvider struct {
	results map[string]TokenResult
	err     error
	calls   [][]string
	lastMsg PushMessage
}

func (p *fakeProvider) Send(ctx context.Context, tokens []string, msg PushMessage) ([]TokenResult, error) {
	p.calls = append(p.calls, tokens)
	p.lastMsg = msg
	if p.err != nil {
		return nil, p.err
	}
	out := make([]TokenResult, 0, len(tokens))
	for _, tok := range tokens {
		if res, ok := p.results[tok]; ok {
			out = append(out, res)
			continue
		}
		out = append(out, TokenResult{Token: tok, Success: true})
	}
	return out, nil
}
