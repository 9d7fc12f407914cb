package shared

import (
	"context"
	"log/slog"
)

// PostCommitStep is a side effect that runs after an in-memory commit, such
// as flushing to the durable store or publishing an event.
type PostCommitStep struct {
	Op  string
	Run func(ctx context.Context) error
}

// RunPostCommit executes every step even when earlier ones fail. Failures are
// logged and returned as a Warning; the commit itself stands.
func RunPostCommit(ctx context.Context, logger *slog.Logger, steps ...PostCommitStep) error {
	var warnings []error
	for _, step := range steps {
		if step.Run == nil {
			continue
		}
		if err := step.Run(ctx); err != nil {
			if logger != nil {
				logger.Warn("post-commit step failed", slog.String("op", step.Op), slog.Any("error", err))
			}
			warnings = append(warnings, NewWarning(step.Op, err))
		}
	}
	return JoinWarnings(warnings...)
}
