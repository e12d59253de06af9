package analytics

import (
	"context"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

type Clock interface{ Now() time.Time }

type Cache interface {
	Remember(ctx context.Context, prefix, key string, ttl time.Duration, dest any, compute func(context.Context) error) error
	Forget(ctx context.Context, prefix, key string)
	FlushPrefix(ctx context.Context, prefix string)
}

// SeriesRow is one (day, type, suspicious) group from the event table.
type SeriesRow struct {
	Day        time.Time
	Type       domain.EventType
	Suspicious bool
	Count      int64
}

// BreakdownRow is one (key, type, suspicious) group, keyed by device or country.
type BreakdownRow struct {
	Key        string
	Type       domain.EventType
	Suspicious bool
	Count      int64
}

// AdTotalsRow is the per-ad rollup used by TopAds.
type AdTotalsRow struct {
	AdID        string
	Title       string
	Impressions int64
	Clicks      int64
	Conversions int64
	Suspicious  int64
}

type StatsRepo interface {
	DailySeries(ctx context.Context, from, to time.Time) ([]SeriesRow, error)
	ByDevice(ctx context.Context, from, to time.Time) ([]BreakdownRow, error)
	ByCountry(ctx context.Context, from, to time.Time) ([]BreakdownRow, error)
	TopAds(ctx context.Context, from, to time.Time) ([]AdTotalsRow, error)
	AdSeries(ctx context.Context, adID string, from, to time.Time) ([]SeriesRow, error)
}
