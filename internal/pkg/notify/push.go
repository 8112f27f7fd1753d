package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/app/repository"
	"github.com/fixia-app/FixiaCore/internal/pkg/cache"
	"github.com/fixia-app/FixiaCore/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	tokenCachePrefix = "push:token:"
	tokenCacheTTL    = 5 * time.Minute

	// Provider batch limit for broadcast sends.
	broadcastChunkSize = 100
)

// Provider is the outbound push channel contract.
type Provider interface {
	Send(ctx context.Context, tokens []string, msg PushMessage) ([]TokenResult, error)
}

// PushService resolves device tokens and delivers push messages. Tokens the
// provider reports as dead are purged from the store and the cache, so the
// registration set heals itself against device churn.
type PushService struct {
	tokens   repository.PushTokenRepository
	provider Provider
}

// NewPushService creates a push service from injected collaborators.
func NewPushService(tokens repository.PushTokenRepository, provider Provider) *PushService {
	return &PushService{tokens: tokens, provider: provider}
}

// RegisterToken stores a device token for a user, replacing any previous one.
func (s *PushService) RegisterToken(ctx context.Context, userID uint, token, platform string) error {
	_ = ctx
	t := strings.TrimSpace(token)
	if userID == 0 || t == "" {
		return errors.New("user id and token are required")
	}
	if err := s.tokens.Upsert(&models.PushToken{UserID: userID, Token: t, Platform: platform}); err != nil {
		return err
	}
	// Invalidate instead of write-through: last writer wins on re-read.
	if err := cache.Delete(tokenCacheKey(userID)); err != nil {
		log.Warnf("[Push] Token cache invalidation for user %d failed: %v", userID, err)
	}
	return nil
}

// SendToUser delivers a message to the user's registered device. A user
// without a live token produces an empty report, not an error.
func (s *PushService) SendToUser(ctx context.Context, userID uint, msg PushMessage) (*SendReport, error) {
	tokens, err := s.resolveTokens(userID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &SendReport{}, nil
	}
	return s.send(ctx, tokens, msg)
}

// SendBroadcast delivers a message to every registered device, sequentially
// in provider-sized chunks. audience, when non-empty, restricts recipients to
// the given user ids. Administrative path only.
func (s *PushService) SendBroadcast(ctx context.Context, msg PushMessage, audience []uint) (*SendReport, error) {
	allowed := make(map[uint]struct{}, len(audience))
	for _, id := range audience {
		allowed[id] = struct{}{}
	}

	total := &SendReport{}
	for offset := 0; ; offset += broadcastChunkSize {
		page, err := s.tokens.ListAll(offset, broadcastChunkSize)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			break
		}

		chunk := make([]string, 0, len(page))
		for _, reg := range page {
			if len(allowed) > 0 {
				if _, ok := allowed[reg.UserID]; !ok {
					continue
				}
			}
			chunk = append(chunk, reg.Token)
		}
		if len(chunk) == 0 {
			continue
		}

		report, err := s.send(ctx, chunk, msg)
		if err != nil {
			log.Errorf("[Push] Broadcast chunk at offset %d failed: %v", offset, err)
			total.FailureCount += len(chunk)
			continue
		}
		total.SuccessCount += report.SuccessCount
		total.FailureCount += report.FailureCount
	}
	return total, nil
}

// send performs one provider call and purges tokens reported dead.
func (s *PushService) send(ctx context.Context, tokens []string, msg PushMessage) (*SendReport, error) {
	results, err := s.provider.Send(ctx, tokens, msg)
	if err != nil {
		return nil, fmt.Errorf("push provider send: %w", err)
	}

	report := &SendReport{}
	for _, res := range results {
		if res.Success {
			report.SuccessCount++
			continue
		}
		report.FailureCount++
		if isDeadTokenError(res.ErrorCode) {
			s.purgeToken(res.Token)
		}
	}

	if err := counter.AddPushDelivered(report.SuccessCount); err != nil {
		log.Debugf("[Push] Counter update failed: %v", err)
	}
	if err := counter.AddPushFailed(report.FailureCount); err != nil {
		log.Debugf("[Push] Counter update failed: %v", err)
	}
	return report, nil
}

// resolveTokens returns the live token(s) for a user, from cache when fresh.
func (s *PushService) resolveTokens(userID uint) ([]string, error) {
	key := tokenCacheKey(userID)
	if cached, err := cache.Get(key); err == nil && cached != "" {
		return []string{cached}, nil
	} else if err != nil && !errors.Is(err, redis.Nil) {
		log.Warnf("[Push] Token cache read for user %d failed: %v", userID, err)
	}

	reg, err := s.tokens.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := cache.Set(key, reg.Token, tokenCacheTTL); err != nil {
		log.Warnf("[Push] Token cache write for user %d failed: %v", userID, err)
	}
	return []string{reg.Token}, nil
}

// purgeToken removes a dead token from the store and drops any cache entry
// pointing at it.
func (s *PushService) purgeToken(token string) {
	reg, err := s.tokens.GetByToken(token)
	if err == nil {
		if derr := cache.Delete(tokenCacheKey(reg.UserID)); derr != nil {
			log.Warnf("[Push] Token cache purge for user %d failed: %v", reg.UserID, derr)
		}
	}
	if err := s.tokens.DeleteByToken(token); err != nil {
		log.Errorf("[Push] Purging dead token failed: %v", err)
		return
	}
	log.Infof("[Push] Purged dead device token")
}

func tokenCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", tokenCachePrefix, userID)
}

// isDeadTokenError classifies provider error codes that mean the token will
// never work again, as opposed to transient delivery problems.
func isDeadTokenError(code string) bool {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "notregistered", "invalidregistration", "unregistered", "invalid_token":
		return true
	default:
		return false
	}
}
