package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// CleanupExpiredTokensWorkflow deletes access tokens whose expiry passed more
// than graceDays ago. Runs on a cron schedule.
func CleanupExpiredTokensWorkflow(ctx workflow.Context, graceDays int) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var deleted int64
	err := workflow.ExecuteActivity(ctx, "DeleteExpiredTokens", graceDays).Get(ctx, &deleted)
	if err != nil {
		return err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("cleaned up expired access tokens", "deleted", deleted, "graceDays", graceDays)

	return nil
}
