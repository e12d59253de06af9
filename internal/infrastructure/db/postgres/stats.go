package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/promokit/adserve/internal/application/analytics"
	"github.com/promokit/adserve/internal/domain"
)

// StatsRepo answers the aggregator's rollup queries. All of them are bounded
// range scans over ad_events grouped in the database, never row-by-row in Go.
type StatsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

func (r *StatsRepo) DailySeries(ctx context.Context, from, to time.Time) ([]analytics.SeriesRow, error) {
	return r.series(ctx, dailySeriesSQL, from.UTC(), to.UTC())
}

func (r *StatsRepo) AdSeries(ctx context.Context, adID string, from, to time.Time) ([]analytics.SeriesRow, error) {
	return r.series(ctx, adSeriesSQL, adID, from.UTC(), to.UTC())
}

func (r *StatsRepo) series(ctx context.Context, q string, args ...any) ([]analytics.SeriesRow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.SeriesRow
	for rows.Next() {
		var row analytics.SeriesRow
		var typ string
		if err := rows.Scan(&row.Day, &typ, &row.Suspicious, &row.Count); err != nil {
			return nil, err
		}
		row.Type = domain.EventType(typ)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *StatsRepo) ByDevice(ctx context.Context, from, to time.Time) ([]analytics.BreakdownRow, error) {
	return r.breakdown(ctx, byDeviceSQL, from, to)
}

func (r *StatsRepo) ByCountry(ctx context.Context, from, to time.Time) ([]analytics.BreakdownRow, error) {
	return r.breakdown(ctx, byCountrySQL, from, to)
}

func (r *StatsRepo) breakdown(ctx context.Context, q string, from, to time.Time) ([]analytics.BreakdownRow, error) {
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.BreakdownRow
	for rows.Next() {
		var row analytics.BreakdownRow
		var typ string
		if err := rows.Scan(&row.Key, &typ, &row.Suspicious, &row.Count); err != nil {
			return nil, err
		}
		row.Type = domain.EventType(typ)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *StatsRepo) TopAds(ctx context.Context, from, to time.Time) ([]analytics.AdTotalsRow, error) {
	rows, err := r.db.QueryContext(ctx, topAdsSQL, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.AdTotalsRow
	for rows.Next() {
		var row analytics.AdTotalsRow
		if err := rows.Scan(&row.AdID, &row.Title, &row.Impressions, &row.Clicks, &row.Conversions, &row.Suspicious); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
