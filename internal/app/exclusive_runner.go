package app

import (
	"context"
	"errors"
	"sync"

	"birthday_notification_bot/internal/domain/notification"
)

var ErrRunInProgress = errors.New("a notification run is already in progress")

// ExclusiveRunner lets at most one run execute at a time across all triggers.
// A trigger that arrives while a run is active gets ErrRunInProgress instead of queueing.
type ExclusiveRunner struct {
	mu    sync.Mutex
	inner NotificationService
}

func NewExclusiveRunner(inner NotificationService) *ExclusiveRunner {
	return &ExclusiveRunner{inner: inner}
}

func (r *ExclusiveRunner) RunScheduled(ctx context.Context) (*notification.RunResult, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.inner.RunScheduled(ctx)
}

func (r *ExclusiveRunner) RunOnDemand(ctx context.Context, opts RunOptions) (*notification.RunResult, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.inner.RunOnDemand(ctx, opts)
}

// PreviewQueue is read-only and never blocks on a running dispatch.
func (r *ExclusiveRunner) PreviewQueue(ctx context.Context) (*QueuePreview, error) {
	return r.inner.PreviewQueue(ctx)
}
