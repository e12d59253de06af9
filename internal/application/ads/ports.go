package ads

import (
	"context"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

type Clock interface{ Now() time.Time }

type AdRepo interface {
	Create(ctx context.Context, a *domain.Ad) error
	GetByID(ctx context.Context, id string) (*domain.Ad, error)
	Update(ctx context.Context, a *domain.Ad) error
	ListEligible(ctx context.Context, pos domain.Position, asOf time.Time) ([]*domain.Ad, error)
}

type Cache interface {
	Remember(ctx context.Context, prefix, key string, ttl time.Duration, dest any, compute func(context.Context) error) error
	Forget(ctx context.Context, prefix, key string)
	FlushPrefix(ctx context.Context, prefix string)
}
