package ingest

import (
	"context"
	"errors"
)

// NoopReplay is wired when no broker is configured (dev). Publishing fails so
// the caller falls through to the loud log-dump path instead of pretending
// the work was queued.
type NoopReplay struct{}

func (NoopReplay) Publish(ctx context.Context, routingKey, messageID string, payload any) error {
	return errors.New("no replay broker configured")
}
