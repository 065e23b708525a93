package sync

import (
	"context"

	"github.com/chatcal/chatcal/internal/store"
)

// Scheduler is the community scheduling feature a shared event may be
// mirrored into. Both operations are best-effort from the engine's point
// of view: failures are logged and reported as SecondaryErr, never fatal.
type Scheduler interface {
	// CreateSchedule mirrors the event and returns its reference, or ""
	// when the feature declines to mirror it.
	CreateSchedule(ctx context.Context, event store.SharedEvent) (string, error)
	// DeleteSchedule removes a previously created mirror.
	DeleteSchedule(ctx context.Context, ref string) error
}

// NoopScheduler is the default when no scheduling feature is attached.
type NoopScheduler struct{}

func (NoopScheduler) CreateSchedule(ctx context.Context, event store.SharedEvent) (string, error) {
	return "", nil
}

func (NoopScheduler) DeleteSchedule(ctx context.Context, ref string) error {
	return nil
}
