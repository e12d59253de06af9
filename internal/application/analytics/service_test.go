package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/promokit/adserve/internal/domain"
	"github.com/stretchr/testify/assert"
)

// --- Mocks & Helpers ---

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type memCache struct {
	entries map[string]map[string]string
}

func newMemCache() *memCache { return &memCache{entries: map[string]map[string]string{}} }

func (m *memCache) Remember(ctx context.Context, prefix, key string, _ time.Duration, dest any, compute func(context.Context) error) error {
	if raw, ok := m.entries[prefix][key]; ok {
		return json.Unmarshal([]byte(raw), dest)
	}
	if err := compute(ctx); err != nil {
		return err
	}
	b, err := json.Marshal(dest)
	if err != nil {
		return err
	}
	if m.entries[prefix] == nil {
		m.entries[prefix] = map[string]string{}
	}
	m.entries[prefix][key] = string(b)
	return nil
}

func (m *memCache) Forget(_ context.Context, prefix, key string) { delete(m.entries[prefix], key) }
func (m *memCache) FlushPrefix(_ context.Context, prefix string) { delete(m.entries, prefix) }

func (m *memCache) prefixes() []string {
	var out []string
	for p := range m.entries {
		out = append(out, p)
	}
	return out
}

type fakeStats struct {
	series    []SeriesRow
	breakdown []BreakdownRow
	top       []AdTotalsRow
	calls     map[string]int
}

func newFakeStats() *fakeStats { return &fakeStats{calls: map[string]int{}} }

func (f *fakeStats) DailySeries(_ context.Context, _, _ time.Time) ([]SeriesRow, error) {
	f.calls["daily"]++
	return f.series, nil
}

func (f *fakeStats) ByDevice(_ context.Context, _, _ time.Time) ([]BreakdownRow, error) {
	f.calls["devices"]++
	return f.breakdown, nil
}

func (f *fakeStats) ByCountry(_ context.Context, _, _ time.Time) ([]BreakdownRow, error) {
	f.calls["countries"]++
	return f.breakdown, nil
}

func (f *fakeStats) TopAds(_ context.Context, _, _ time.Time) ([]AdTotalsRow, error) {
	f.calls["top"]++
	return f.top, nil
}

func (f *fakeStats) AdSeries(_ context.Context, _ string, _, _ time.Time) ([]SeriesRow, error) {
	f.calls["ad_series"]++
	return f.series, nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	assert.NoError(t, err)
	return d.UTC()
}

// --- Test Cases ---

func TestNewRange(t *testing.T) {
	t.Run("inclusive_days_become_half_open", func(t *testing.T) {
		r, err := NewRange(day(t, "2026-03-01"), day(t, "2026-03-07"))
		assert.NoError(t, err)
		assert.Equal(t, day(t, "2026-03-01"), r.From)
		assert.Equal(t, day(t, "2026-03-08"), r.To)
	})

	t.Run("single_day", func(t *testing.T) {
		r, err := NewRange(day(t, "2026-03-01"), day(t, "2026-03-01"))
		assert.NoError(t, err)
		assert.True(t, r.IncludesDay(day(t, "2026-03-01").Add(13*time.Hour)))
		assert.False(t, r.IncludesDay(day(t, "2026-03-02")))
	})

	t.Run("inverted", func(t *testing.T) {
		_, err := NewRange(day(t, "2026-03-07"), day(t, "2026-03-01"))
		assert.Error(t, err)
	})
}

func TestTotals_Rates(t *testing.T) {
	t.Run("zero_impressions_zero_ctr", func(t *testing.T) {
		tot := Totals{}
		tot.finalize()
		assert.Zero(t, tot.CTR)
		assert.Zero(t, tot.ConversionRate)
	})

	t.Run("zero_clicks_zero_cvr", func(t *testing.T) {
		tot := Totals{Impressions: 100}
		tot.finalize()
		assert.Zero(t, tot.CTR)
		assert.Zero(t, tot.ConversionRate)
	})

	t.Run("rates_computed", func(t *testing.T) {
		tot := Totals{Impressions: 200, Clicks: 10, Conversions: 2}
		tot.finalize()
		assert.InDelta(t, 0.05, tot.CTR, 1e-9)
		assert.InDelta(t, 0.2, tot.ConversionRate, 1e-9)
	})
}

func TestDailySeries(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	stats := newFakeStats()
	stats.series = []SeriesRow{
		{Day: day(t, "2026-03-02"), Type: domain.EventImpression, Suspicious: false, Count: 100},
		{Day: day(t, "2026-03-02"), Type: domain.EventClick, Suspicious: false, Count: 5},
		{Day: day(t, "2026-03-02"), Type: domain.EventClick, Suspicious: true, Count: 40},
		{Day: day(t, "2026-03-01"), Type: domain.EventImpression, Suspicious: false, Count: 10},
	}
	svc := New(stats, newMemCache(), fakeClock{t: now}, 0, 0)

	r, err := NewRange(day(t, "2026-03-01"), day(t, "2026-03-02"))
	assert.NoError(t, err)

	out, err := svc.DailySeries(context.Background(), r)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "2026-03-01", out[0].Day, "days sorted ascending")
	assert.Equal(t, "2026-03-02", out[1].Day)

	d2 := out[1]
	assert.Equal(t, int64(100), d2.Impressions)
	assert.Equal(t, int64(5), d2.Clicks)
	assert.Equal(t, int64(40), d2.Suspicious, "flagged clicks land in the fraud line, not the headline")
	assert.InDelta(t, 0.05, d2.CTR, 1e-9)
}

func TestCacheTiering(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("closed_range_under_stable_prefix", func(t *testing.T) {
		stats := newFakeStats()
		cache := newMemCache()
		svc := New(stats, cache, fakeClock{t: now}, 0, 0)

		r, err := NewRange(day(t, "2026-03-01"), day(t, "2026-03-07"))
		assert.NoError(t, err)
		_, err = svc.DailySeries(context.Background(), r)
		assert.NoError(t, err)

		assert.Contains(t, cache.prefixes(), "analytics:closed")
	})

	t.Run("range_including_today_under_day_bucket", func(t *testing.T) {
		stats := newFakeStats()
		cache := newMemCache()
		svc := New(stats, cache, fakeClock{t: now}, 0, 0)

		r, err := NewRange(day(t, "2026-03-10"), day(t, "2026-03-15"))
		assert.NoError(t, err)
		_, err = svc.DailySeries(context.Background(), r)
		assert.NoError(t, err)

		assert.Contains(t, cache.prefixes(), "analytics:day:2026-03-15")
	})

	t.Run("flushing_day_bucket_recomputes_open_range_only", func(t *testing.T) {
		stats := newFakeStats()
		cache := newMemCache()
		svc := New(stats, cache, fakeClock{t: now}, 0, 0)

		open, err := NewRange(day(t, "2026-03-10"), day(t, "2026-03-15"))
		assert.NoError(t, err)
		closed, err := NewRange(day(t, "2026-03-01"), day(t, "2026-03-07"))
		assert.NoError(t, err)

		_, err = svc.DailySeries(context.Background(), open)
		assert.NoError(t, err)
		_, err = svc.DailySeries(context.Background(), closed)
		assert.NoError(t, err)
		assert.Equal(t, 2, stats.calls["daily"])

		// What the ingestor does when an event lands.
		cache.FlushPrefix(context.Background(), OpenPrefix(now))

		_, err = svc.DailySeries(context.Background(), open)
		assert.NoError(t, err)
		_, err = svc.DailySeries(context.Background(), closed)
		assert.NoError(t, err)
		assert.Equal(t, 3, stats.calls["daily"], "closed range stayed cached")
	})
}

func TestBreakdowns(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	stats := newFakeStats()
	stats.breakdown = []BreakdownRow{
		{Key: "mobile", Type: domain.EventImpression, Suspicious: false, Count: 60},
		{Key: "desktop", Type: domain.EventImpression, Suspicious: false, Count: 40},
		{Key: "desktop", Type: domain.EventImpression, Suspicious: true, Count: 15},
		{Key: "mobile", Type: domain.EventClick, Suspicious: false, Count: 3},
	}
	svc := New(stats, newMemCache(), fakeClock{t: now}, 0, 0)

	r, err := NewRange(day(t, "2026-03-01"), day(t, "2026-03-07"))
	assert.NoError(t, err)

	out, err := svc.ByDevice(context.Background(), r)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "desktop", out[0].Key, "keys sorted")
	assert.Equal(t, int64(15), out[0].Suspicious)
	assert.Equal(t, "mobile", out[1].Key)
	assert.InDelta(t, 0.05, out[1].CTR, 1e-9)
}

func TestTopAds(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	stats := newFakeStats()
	stats.top = []AdTotalsRow{
		{AdID: "ad_a", Title: "A", Impressions: 100, Clicks: 30},
		{AdID: "ad_b", Title: "B", Impressions: 500, Clicks: 5},
		{AdID: "ad_c", Title: "C", Impressions: 200, Clicks: 10},
	}
	svc := New(stats, newMemCache(), fakeClock{t: now}, 0, 0)

	r, err := NewRange(day(t, "2026-03-01"), day(t, "2026-03-07"))
	assert.NoError(t, err)

	t.Run("sorted_by_requested_metric", func(t *testing.T) {
		out, err := svc.TopAds(context.Background(), r, "impressions", 10)
		assert.NoError(t, err)
		assert.Equal(t, []string{"ad_b", "ad_c", "ad_a"}, []string{out[0].AdID, out[1].AdID, out[2].AdID})

		out, err = svc.TopAds(context.Background(), r, "clicks", 10)
		assert.NoError(t, err)
		assert.Equal(t, "ad_a", out[0].AdID)
	})

	t.Run("limit_applied", func(t *testing.T) {
		out, err := svc.TopAds(context.Background(), r, "impressions", 2)
		assert.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("invalid_metric", func(t *testing.T) {
		_, err := svc.TopAds(context.Background(), r, "revenue", 10)
		var ae *domain.AppError
		assert.ErrorAs(t, err, &ae)
		assert.Equal(t, domain.CodeValidation, ae.Code)
	})
}

func TestAdSummary(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	stats := newFakeStats()
	stats.series = []SeriesRow{
		{Day: day(t, "2026-03-14"), Type: domain.EventImpression, Suspicious: false, Count: 50},
	}
	cache := newMemCache()
	svc := New(stats, cache, fakeClock{t: now}, 0, 0)

	r, err := NewRange(day(t, "2026-03-10"), day(t, "2026-03-15"))
	assert.NoError(t, err)

	out, err := svc.AdSummary(context.Background(), "ad_1", r)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Contains(t, cache.prefixes(), "analytics:ad:ad_1", "per-ad entries group under the ad's own prefix")

	// One event against ad_1 flushes exactly this prefix.
	cache.FlushPrefix(context.Background(), AdPrefix("ad_1"))
	_, err = svc.AdSummary(context.Background(), "ad_1", r)
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.calls["ad_series"])
}
