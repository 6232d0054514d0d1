package dispatch

import (
	"time"

	apperrors "adw/cli/internal/errors"
)

// Observer is notified as a dispatch progresses. Calls happen on the
// dispatching goroutine, so implementations must not block.
type Observer interface {
	OnAttempt(attempt, maxAttempts int, modelID string)
	OnRetry(attempt int, err *apperrors.E, delay time.Duration)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) OnAttempt(int, int, string)               {}
func (NopObserver) OnRetry(int, *apperrors.E, time.Duration) {}
