package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/models"
)

const (
	retentionSweepInterval  = 6 * time.Hour
	retentionDeleteBatch    = 5000
	maxRetentionBatchesRuns = 2000
)

// ExecutionRetentionCleaner deletes old execution rows in batches. The
// pipeline itself never deletes executions; this is an explicit operational
// job and is disabled unless a positive retention is configured.
type ExecutionRetentionCleaner struct {
	db            *gorm.DB
	retentionDays int
}

// NewExecutionRetentionCleaner builds a cleaner. retentionDays <= 0 disables it.
func NewExecutionRetentionCleaner(db *gorm.DB, retentionDays int) *ExecutionRetentionCleaner {
	if db == nil || retentionDays <= 0 {
		return nil
	}
	return &ExecutionRetentionCleaner{db: db, retentionDays: retentionDays}
}

// Start launches the sweep loop in a background goroutine.
func (c *ExecutionRetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.run(ctx)
	log.Infof("execution retention cleaner started (days=%d)", c.retentionDays)
}

func (c *ExecutionRetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.sweepOnce(ctx)
		timer := time.NewTimer(retentionSweepInterval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (c *ExecutionRetentionCleaner) sweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -c.retentionDays)
	deleted := int64(0)
	for i := 0; i < maxRetentionBatchesRuns; i++ {
		if ctx.Err() != nil {
			return
		}
		n, err := c.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("execution retention: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deleted += n
	}
	if deleted > 0 {
		log.Infof("execution retention: deleted %d executions (cutoff=%s)", deleted, cutoff.Format(time.RFC3339))
	}
}

func (c *ExecutionRetentionCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	var ids []uint64
	err := c.db.WithContext(ctx).Model(&models.Execution{}).
		Where("created_at < ? AND status <> ?", cutoff, models.ExecutionRunning).
		Order("id ASC").
		Limit(retentionDeleteBatch).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	if err := c.db.WithContext(ctx).Where("execution_id IN ?", ids).Delete(&models.Notification{}).Error; err != nil {
		return 0, err
	}
	if err := c.db.WithContext(ctx).Where("execution_id IN ?", ids).Delete(&models.ExternalEmail{}).Error; err != nil {
		return 0, err
	}
	res := c.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Execution{})
	return res.RowsAffected, res.Error
}
