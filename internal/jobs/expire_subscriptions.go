package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/kasir/internal/service"
)

// JobTypeExpireSubscriptions identifies the periodic subscription sweep.
const JobTypeExpireSubscriptions = "expire_subscriptions"

// ExpireSubscriptionsHandler runs the subscription expiry sweep on a schedule.
type ExpireSubscriptionsHandler struct {
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewExpireSubscriptionsHandler creates a new handler for the expiry sweep.
func NewExpireSubscriptionsHandler(subscriptions service.SubscriptionService, logger *slog.Logger) *ExpireSubscriptionsHandler {
	return &ExpireSubscriptionsHandler{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Type returns the job type identifier.
func (h *ExpireSubscriptionsHandler) Type() string {
	return JobTypeExpireSubscriptions
}

// Run executes one sweep. Per-company failures are logged by the sweep and
// picked up again on the next run; only a failed candidate listing fails the run.
func (h *ExpireSubscriptionsHandler) Run(ctx context.Context) error {
	result, err := h.subscriptions.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep expired subscriptions: %w", err)
	}

	if len(result.Failures) > 0 {
		h.logger.Warn("subscription sweep finished with failures",
			"updated", result.UpdatedCount,
			"failed", len(result.Failures),
		)
	}
	return nil
}
