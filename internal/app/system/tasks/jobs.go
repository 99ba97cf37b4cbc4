// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/audit"
	draftstore "github.com/dalemusser/strataportal/internal/app/store/drafts"
	"go.uber.org/zap"
)

// DraftCleanupJob removes data-label wizard drafts past their expiry.
func DraftCleanupJob(drafts *draftstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "draft-cleanup",
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := drafts.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("removed expired label drafts", zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// AuditRetentionJob deletes audit events older than retention.
func AuditRetentionJob(store *audit.Store, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "audit-retention",
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := store.Prune(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pruned audit events",
					zap.Int64("deleted", n),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}
