package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/promokit/adserve/internal/application/ads"
	"github.com/promokit/adserve/internal/application/analytics"
	"github.com/promokit/adserve/internal/application/fraud"
	"github.com/promokit/adserve/internal/domain"
)

// pipelineStore backs the catalog, the event log, the fraud lookback and the
// rollup queries with one shared in-memory state, so the services can be
// exercised together the way the composition root wires them.
type pipelineStore struct {
	ads    map[string]*domain.Ad
	events []*domain.AdEvent
}

func newPipelineStore() *pipelineStore {
	return &pipelineStore{ads: map[string]*domain.Ad{}}
}

func (s *pipelineStore) Create(_ context.Context, a *domain.Ad) error {
	cp := *a
	s.ads[a.ID] = &cp
	return nil
}

func (s *pipelineStore) GetByID(_ context.Context, id string) (*domain.Ad, error) {
	a, ok := s.ads[id]
	if !ok {
		return nil, domain.ErrNotFound("ad not found")
	}
	cp := *a
	return &cp, nil
}

func (s *pipelineStore) Update(_ context.Context, a *domain.Ad) error {
	if _, ok := s.ads[a.ID]; !ok {
		return domain.ErrNotFound("ad not found")
	}
	cp := *a
	s.ads[a.ID] = &cp
	return nil
}

func (s *pipelineStore) ListEligible(_ context.Context, pos domain.Position, asOf time.Time) ([]*domain.Ad, error) {
	var out []*domain.Ad
	for _, a := range s.ads {
		if a.Position == pos && a.EligibleAt(asOf) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *pipelineStore) Insert(_ context.Context, e *domain.AdEvent) error {
	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

func (s *pipelineStore) IncrementCounter(_ context.Context, adID string, t domain.EventType, _ time.Time) error {
	a, ok := s.ads[adID]
	if !ok {
		return domain.ErrNotFound("ad not found")
	}
	switch t {
	case domain.EventImpression:
		a.Impressions++
	case domain.EventClick:
		a.Clicks++
	case domain.EventConversion:
		a.Conversions++
	}
	return nil
}

func (s *pipelineStore) RecountAd(_ context.Context, _ string) error { return nil }

func (s *pipelineStore) ListAdIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id := range s.ads {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *pipelineStore) CountRecent(_ context.Context, adID, ip string, t domain.EventType, since time.Time) (int, error) {
	n := 0
	for _, e := range s.events {
		if e.AdID == adID && e.IP == ip && e.Type == t && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *pipelineStore) ExistsRecent(ctx context.Context, adID, ip string, t domain.EventType, since time.Time) (bool, error) {
	n, err := s.CountRecent(ctx, adID, ip, t, since)
	return n > 0, err
}

func (s *pipelineStore) inRange(from, to time.Time) []*domain.AdEvent {
	var out []*domain.AdEvent
	for _, e := range s.events {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

func (s *pipelineStore) DailySeries(_ context.Context, from, to time.Time) ([]analytics.SeriesRow, error) {
	var rows []analytics.SeriesRow
	for _, e := range s.inRange(from, to) {
		rows = append(rows, analytics.SeriesRow{
			Day: e.CreatedAt.Truncate(24 * time.Hour), Type: e.Type, Suspicious: e.Suspicious, Count: 1,
		})
	}
	return rows, nil
}

func (s *pipelineStore) AdSeries(_ context.Context, adID string, from, to time.Time) ([]analytics.SeriesRow, error) {
	var rows []analytics.SeriesRow
	for _, e := range s.inRange(from, to) {
		if e.AdID == adID {
			rows = append(rows, analytics.SeriesRow{
				Day: e.CreatedAt.Truncate(24 * time.Hour), Type: e.Type, Suspicious: e.Suspicious, Count: 1,
			})
		}
	}
	return rows, nil
}

func (s *pipelineStore) ByDevice(_ context.Context, from, to time.Time) ([]analytics.BreakdownRow, error) {
	var rows []analytics.BreakdownRow
	for _, e := range s.inRange(from, to) {
		rows = append(rows, analytics.BreakdownRow{Key: string(e.Device), Type: e.Type, Suspicious: e.Suspicious, Count: 1})
	}
	return rows, nil
}

func (s *pipelineStore) ByCountry(_ context.Context, from, to time.Time) ([]analytics.BreakdownRow, error) {
	var rows []analytics.BreakdownRow
	for _, e := range s.inRange(from, to) {
		rows = append(rows, analytics.BreakdownRow{Key: e.Country, Type: e.Type, Suspicious: e.Suspicious, Count: 1})
	}
	return rows, nil
}

func (s *pipelineStore) TopAds(_ context.Context, from, to time.Time) ([]analytics.AdTotalsRow, error) {
	byAd := map[string]*analytics.AdTotalsRow{}
	for _, e := range s.inRange(from, to) {
		row, ok := byAd[e.AdID]
		if !ok {
			row = &analytics.AdTotalsRow{AdID: e.AdID, Title: s.ads[e.AdID].Title}
			byAd[e.AdID] = row
		}
		if e.Suspicious {
			row.Suspicious++
			continue
		}
		switch e.Type {
		case domain.EventImpression:
			row.Impressions++
		case domain.EventClick:
			row.Clicks++
		case domain.EventConversion:
			row.Conversions++
		}
	}
	var out []analytics.AdTotalsRow
	for _, row := range byAd {
		out = append(out, *row)
	}
	return out, nil
}

// The full serving loop over one shared store: create an ad, win the slot,
// record interactions, and read them back from the rollups.
func TestServeRecordAggregateFlow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := fakeClock{t: now}
	store := newPipelineStore()
	cache := newMemCache()

	catalog := ads.New(store, cache, clock, 0, 0, 0)
	detector := fraud.New(store, fraud.Limits{})
	ingestor := New(catalog, store, detector, cache, &fakeReplay{}, clock, 0, 1, time.Millisecond)
	stats := analytics.New(store, cache, clock, 0, 0)

	ctx := context.Background()
	today, err := analytics.NewRange(now, now)
	assert.NoError(t, err)

	ad, err := catalog.Create(ctx, ads.CreateCmd{
		Title:     "spring push",
		TargetURL: "https://shop.example/spring",
		Position:  domain.PosHeader,
		Active:    true,
		Priority:  1,
	})
	assert.NoError(t, err)

	t.Run("created_ad_wins_its_position", func(t *testing.T) {
		winner, err := catalog.SelectForPosition(ctx, domain.PosHeader, now)
		assert.NoError(t, err)
		assert.NotNil(t, winner)
		assert.Equal(t, ad.ID, winner.ID)
	})

	visit := RequestContext{
		IP:        "203.0.113.7",
		UserAgent: browserUA,
		PageURL:   "https://blog.example/post",
		Country:   "AU",
	}

	t.Run("impression_then_click_from_one_visitor_is_clean", func(t *testing.T) {
		res, err := ingestor.Record(ctx, ad.ID, domain.EventImpression, visit)
		assert.NoError(t, err)
		assert.False(t, res.Suspicious)

		res, err = ingestor.Record(ctx, ad.ID, domain.EventClick, visit)
		assert.NoError(t, err)
		assert.False(t, res.Suspicious)

		// The detail read comes back fresh because recording forgot it.
		got, err := catalog.Get(ctx, ad.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), got.Impressions)
		assert.Equal(t, int64(1), got.Clicks)
	})

	t.Run("todays_rollup_reflects_both_events", func(t *testing.T) {
		days, err := stats.DailySeries(ctx, today)
		assert.NoError(t, err)
		assert.Len(t, days, 1)
		assert.Equal(t, "2026-03-15", days[0].Day)
		assert.Equal(t, int64(1), days[0].Impressions)
		assert.Equal(t, int64(1), days[0].Clicks)
		assert.Equal(t, int64(0), days[0].Suspicious)
		assert.InDelta(t, 1.0, days[0].CTR, 1e-9)

		top, err := stats.TopAds(ctx, today, "impressions", 10)
		assert.NoError(t, err)
		assert.Len(t, top, 1)
		assert.Equal(t, "spring push", top[0].Title)
		assert.Equal(t, int64(1), top[0].Clicks)
	})

	t.Run("bot_traffic_lands_in_the_fraud_line_after_invalidation", func(t *testing.T) {
		// The rollup above is now cached; the next Record must flush it.
		res, err := ingestor.Record(ctx, ad.ID, domain.EventImpression, RequestContext{
			IP:        "203.0.113.9",
			UserAgent: "curl/8.5.0",
			Country:   "AU",
		})
		assert.NoError(t, err)
		assert.True(t, res.Suspicious)

		days, err := stats.DailySeries(ctx, today)
		assert.NoError(t, err)
		assert.Len(t, days, 1)
		assert.Equal(t, int64(1), days[0].Impressions)
		assert.Equal(t, int64(1), days[0].Suspicious)

		// Counters stay clean-only.
		got, err := catalog.Get(ctx, ad.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), got.Impressions)
	})
}
