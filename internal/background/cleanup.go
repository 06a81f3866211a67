package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptPruner deletes login attempt rows past their retention
type AttemptPruner interface {
	DeleteExpiredAttempts(ctx context.Context) error
}

// CleanupManager periodically removes expired login attempt records from the database
type CleanupManager struct {
	attempts AttemptPruner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(attempts AttemptPruner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		attempts: attempts,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes login attempts past their retention window
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := cm.attempts.DeleteExpiredAttempts(cleanupCtx); err != nil {
		cm.logger.Error("failed to cleanup expired login attempts", slog.Any("error", err))
		return
	}

	cm.logger.Info("expired login attempt cleanup completed")
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
