package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/repository"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/utils"
)

const (
	jobCountsCacheKey = "dashboard:job_counts"
	jobCountsCacheTTL = 15 * time.Second

	recentFailuresLimit = 10
)

// invalidateJobCounts drops the cached aggregates after a job mutation so
// the next dashboard load reflects it without waiting out the TTL.
func (ctrl *Controller) invalidateJobCounts(ctx context.Context) {
	if err := ctrl.Infra.Redis.Delete(ctx, jobCountsCacheKey); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Dashboard] Failed to invalidate job counts cache: %v", err)
	}
}

// GetDashboard aggregates the admin landing page in one call: job counts by
// kind and status, recent failures, live subscriber count, and storage
// health. Counts are cached briefly in Redis since every admin tab polls
// this endpoint.
func (ctrl *Controller) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	var counts []repository.StatusCount
	if err := ctrl.Infra.Redis.Get(ctx, jobCountsCacheKey, &counts); err != nil {
		fresh, err := ctrl.Repository.JobRepo.CountsByKindAndStatus(ctx)
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Dashboard] Failed to aggregate job counts: %v", err)
			utils.JSON500(c, "Failed to aggregate job counts")
			return
		}
		counts = fresh
		if err := ctrl.Infra.Redis.Set(ctx, jobCountsCacheKey, counts, jobCountsCacheTTL); err != nil {
			ctrl.Infra.Logger.WarningWithContextf(ctx, "[Dashboard] Failed to cache job counts: %v", err)
		}
	}

	failures, err := ctrl.Repository.JobRepo.RecentFailures(ctx, recentFailuresLimit)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Dashboard] Failed to load recent failures: %v", err)
		utils.JSON500(c, "Failed to load recent failures")
		return
	}

	storage, err := ctrl.Infra.Minio.GetStorageHealth(ctx)
	if err != nil {
		// The dashboard still renders with storage marked offline.
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Dashboard] Storage health check failed: %v", err)
	}

	utils.JSON200(c, gin.H{
		"job_counts":      counts,
		"recent_failures": failures,
		"subscribers":     ctrl.Broadcaster.SubscriberCount(),
		"storage":         storage,
	})
}
