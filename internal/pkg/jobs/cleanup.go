package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// notificationRetention is how long read notifications are kept.
const notificationRetention = 90 * 24 * time.Hour

// NotificationCleanupSweep prunes read notifications past the retention
// window. Unread records are never touched.
func (s *Service) NotificationCleanupSweep(ctx context.Context) error {
	_ = ctx
	cutoff := s.now().Add(-notificationRetention)

	removed, err := s.notifications.DeleteReadOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	if removed > 0 {
		log.Infof("[Jobs] Notification cleanup removed %d read records older than %s", removed, cutoff.Format("2006-01-02"))
	}
	return nil
}
