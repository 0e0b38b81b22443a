package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
)

const cartPurgeJobName = "purge_cart_snapshots"

type snapshotPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartPurgeParams configure the expired cart snapshot purge.
type CartPurgeParams struct {
	Logger    *logger.Logger
	Repo      snapshotPurger
	Retention time.Duration
	Now       func() time.Time
}

type cartPurgeJob struct {
	logg      *logger.Logger
	repo      snapshotPurger
	retention time.Duration
	now       func() time.Time
}

// NewCartPurgeJob deletes persisted carts whose last write is older than
// Retention.
func NewCartPurgeJob(params CartPurgeParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("cart snapshot repository required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &cartPurgeJob{
		logg:      params.Logger,
		repo:      params.Repo,
		retention: params.Retention,
		now:       now,
	}, nil
}

func (j *cartPurgeJob) Name() string { return cartPurgeJobName }

func (j *cartPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge cart snapshots: %w", err)
	}
	if deleted > 0 {
		ctx = j.logg.WithFields(ctx, map[string]any{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		})
		j.logg.Info(ctx, "purged expired cart snapshots")
	}
	return nil
}
