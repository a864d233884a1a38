package store

import (
	"context"
	"log/slog"
	"time"
)

const cleanupInterval = 1 * time.Hour

// StartCleanupWorker runs a background goroutine that periodically removes
// assignments whose session has long since ended. Stops when ctx is done.
func StartCleanupWorker(ctx context.Context, repo Repository, ttl time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Assignment cleanup worker started", "interval", cleanupInterval, "ttl", ttl)

		for {
			select {
			case <-ctx.Done():
				slog.Info("Assignment cleanup worker stopped")
				return
			case <-ticker.C:
				deleted, err := repo.CleanupExpiredAssignments(ctx, ttl)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Error("Assignment cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Expired assignments removed", "count", deleted)
				}
			}
		}
	}()
}
