package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixia-app/FixiaCore/app/models"
)

type stubSender struct {
	report *SendReport
	err    error
	calls  int
	last   PushMessage
}

func (s *stubSender) SendToUser(ctx context.Context, userID uint, msg PushMessage) (*SendReport, error) {
	s.calls++
	s.last = msg
	if s.err != nil {
		return nil, s.err
	}
	if s.report != nil {
		return s.report, nil
	}
	return &SendReport{SuccessCount: 1}, nil
}

func TestDispatchPersistsAndPushes(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sender := &stubSender{}
	d := NewDispatcher(repo, sender)

	n, err := d.Dispatch(context.Background(), 7, models.CategoryMatch,
		"New match request", "Someone wants to hire you",
		map[string]string{"match_id": "42"})
	require.NoError(t, err)

	require.Len(t, repo.stored, 1)
	assert.Equal(t, uint(7), n.UserID)
	assert.Contains(t, n.PayloadJSON, `"match_id":"42"`)
	assert.Empty(t, n.DedupeKey)

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "/matches/42", sender.last.DeepLink)
	assert.Equal(t, "handshake", sender.last.Icon)
}

func TestDispatchPushFailureIsTolerated(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sender := &stubSender{err: errors.New("provider down")}
	d := NewDispatcher(repo, sender)

	_, err := d.Dispatch(context.Background(), 7, models.CategorySystem, "Maintenance", "", nil)
	require.NoError(t, err, "the stored record is the source of truth")
	assert.Len(t, repo.stored, 1)
}

func TestDispatchPersistFailureIsFatal(t *testing.T) {
	repo := &fakeNotificationRepo{failing: true}
	sender := &stubSender{}
	d := NewDispatcher(repo, sender)

	_, err := d.Dispatch(context.Background(), 7, models.CategorySystem, "Maintenance", "", nil)
	assert.Error(t, err)
	assert.Zero(t, sender.calls, "no push without a stored record")
}

func TestDispatchValidation(t *testing.T) {
	d := NewDispatcher(&fakeNotificationRepo{}, nil)

	_, err := d.Dispatch(context.Background(), 0, models.CategorySystem, "t", "b", nil)
	assert.Error(t, err)

	_, err = d.Dispatch(context.Background(), 7, models.NotificationCategory("weird"), "t", "b", nil)
	assert.Error(t, err)
}

func TestDispatchDedupedStampsKey(t *testing.T) {
	repo := &fakeNotificationRepo{}
	d := NewDispatcher(repo, nil)

	n, err := d.DispatchDeduped(context.Background(), 7, models.CategorySystem,
		"Subscription expiring", "3 days left", nil, "renewal_reminder:3")
	require.NoError(t, err)
	assert.Equal(t, "renewal_reminder:3", n.DedupeKey)
}

func TestDispatchWithoutSender(t *testing.T) {
	repo := &fakeNotificationRepo{}
	d := NewDispatcher(repo, nil)

	_, err := d.Dispatch(context.Background(), 7, models.CategoryRating, "New rating", "", nil)
	require.NoError(t, err)
	assert.Len(t, repo.stored, 1)
}

func TestListForUserClampsLimit(t *testing.T) {
	repo := &fakeNotificationRepo{}
	d := NewDispatcher(repo, nil)

	for i := 0; i < 3; i++ {
		_, err := d.Dispatch(context.Background(), 7, models.CategorySystem, "t", "b", nil)
		require.NoError(t, err)
	}

	items, err := d.ListForUser(context.Background(), 7, 0, -5)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	unread, err := d.UnreadCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)
}

func TestMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	d := NewDispatcher(repo, nil)

	n, err := d.Dispatch(context.Background(), 7, models.CategorySystem, "t", "b", nil)
	require.NoError(t, err)

	require.NoError(t, d.MarkRead(context.Background(), n.ID, 7))

	unread, err := d.UnreadCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, unread)

	// Foreign user cannot mark it.
	assert.Error(t, d.MarkRead(context.Background(), n.ID, 8))
}
