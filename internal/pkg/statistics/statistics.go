package statistics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/fixia-app/FixiaCore/app/models"
	"github.com/fixia-app/FixiaCore/internal/pkg/cache"
	"github.com/fixia-app/FixiaCore/internal/pkg/database"
)

const (
	CacheKeyUsersTotal          = "statistics:users:total"
	CacheKeySubscriptionsActive = "statistics:subscriptions:active"
	CacheKeyPaymentsPending     = "statistics:payments:pending"
	CacheExpiration             = 30 * time.Minute
)

// PlatformStats is the aggregate view served to the admin dashboard.
type PlatformStats struct {
	TotalUsers          int64 `json:"total_users"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	PendingPayments     int64 `json:"pending_payments"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// UpdateCacheIfNeeded refreshes the cached stats at most once per interval.
func UpdateCacheIfNeeded() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if time.Since(lastCacheUpdate) <= cacheUpdateInterval {
		return
	}
	if err := UpdateStatisticsCache(); err != nil {
		log.Errorf("[Statistics] Cache refresh failed: %v", err)
		return
	}
	lastCacheUpdate = time.Now()
}

// UpdateStatisticsCache recomputes the aggregates and writes them to Redis.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var activeSubs int64
	if err := db.Model(&models.Subscription{}).
		Where("state = ?", models.SubscriptionStateActive).
		Count(&activeSubs).Error; err != nil {
		return err
	}

	var pendingPayments int64
	if err := db.Model(&models.Payment{}).
		Where("state = ?", models.PaymentStatePending).
		Count(&pendingPayments).Error; err != nil {
		return err
	}

	if err := cache.Set(CacheKeyUsersTotal, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeySubscriptionsActive, strconv.FormatInt(activeSubs, 10), CacheExpiration); err != nil {
		return err
	}
	return cache.Set(CacheKeyPaymentsPending, strconv.FormatInt(pendingPayments, 10), CacheExpiration)
}

// GetPlatformStats returns the cached aggregates, refreshing the cache when
// it is stale or missing.
func GetPlatformStats() PlatformStats {
	UpdateCacheIfNeeded()

	stats := PlatformStats{}
	stats.TotalUsers = readCachedInt(CacheKeyUsersTotal)
	stats.ActiveSubscriptions = readCachedInt(CacheKeySubscriptionsActive)
	stats.PendingPayments = readCachedInt(CacheKeyPaymentsPending)
	return stats
}

func readCachedInt(key string) int64 {
	raw, err := cache.Get(key)
	if err != nil {
		return 0
	}
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}
