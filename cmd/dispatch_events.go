// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sync"
	"time"

	"adw/cli/internal/dispatch"
	apperrors "adw/cli/internal/errors"
)

// progressView renders dispatch progress as an animated status line.
// It implements dispatch.Observer; when disabled it only records what happened.
type progressView struct {
	enabled bool

	mu       sync.Mutex
	spinner  *areaSpinner
	attempts int
	retries  []string
}

var _ dispatch.Observer = (*progressView)(nil)

func newProgressView(enabled bool) *progressView {
	return &progressView{enabled: enabled}
}

// Start begins animating with an initial status.
func (v *progressView) Start(status string) {
	if !v.enabled {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spinner = startAreaSpinner(status)
}

// Stop removes the status line.
func (v *progressView) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spinner.Stop()
	v.spinner = nil
}

// OnAttempt is called before each request to the server.
func (v *progressView) OnAttempt(attempt, maxAttempts int, modelID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attempts = attempt
	status := fmt.Sprintf("Waiting for %s", modelID)
	if attempt > 1 {
		status = fmt.Sprintf("Waiting for %s (attempt %d/%d)", modelID, attempt, maxAttempts)
	}
	v.spinner.SetStatus(status)
}

// OnRetry is called after a retryable failure, before the backoff sleep.
func (v *progressView) OnRetry(attempt int, err *apperrors.E, delay time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	msg := fmt.Sprintf("attempt %d failed (%s), retrying in %s", attempt, err.Kind, delay.Round(time.Millisecond))
	v.retries = append(v.retries, msg)
	v.spinner.SetStatus(msg)
}

// Retries returns the retry notes collected so far.
func (v *progressView) Retries() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.retries))
	copy(out, v.retries)
	return out
}
