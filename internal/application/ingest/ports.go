package ingest

import (
	"context"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

type Clock interface{ Now() time.Time }

type EventRepo interface {
	Insert(ctx context.Context, e *domain.AdEvent) error
	IncrementCounter(ctx context.Context, adID string, t domain.EventType, now time.Time) error
	RecountAd(ctx context.Context, adID string) error
	ListAdIDs(ctx context.Context) ([]string, error)
}

// AdResolver is the catalog view the ingestor needs; the cache-fronted
// catalog read satisfies it.
type AdResolver interface {
	Get(ctx context.Context, id string) (*domain.Ad, error)
}

// ReplayPublisher receives work that exhausted its in-process retries.
type ReplayPublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, payload any) error
}

type Cache interface {
	Remember(ctx context.Context, prefix, key string, ttl time.Duration, dest any, compute func(context.Context) error) error
	Forget(ctx context.Context, prefix, key string)
	FlushPrefix(ctx context.Context, prefix string)
}
