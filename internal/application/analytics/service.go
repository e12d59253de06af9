package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

// Range is a half-open [From, To) window over event creation time. Handlers
// build it from inclusive calendar dates via NewRange.
type Range struct {
	From time.Time
	To   time.Time
}

// NewRange converts inclusive calendar dates into the half-open UTC window
// the repositories query with.
func NewRange(fromDay, toDay time.Time) (Range, error) {
	from := fromDay.UTC().Truncate(24 * time.Hour)
	to := toDay.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	if !to.After(from) {
		return Range{}, domain.ErrValidation("to must be >= from")
	}
	return Range{From: from, To: to}, nil
}

// IncludesDay reports whether the day containing t falls inside the range.
func (r Range) IncludesDay(t time.Time) bool {
	day := t.UTC().Truncate(24 * time.Hour)
	return !day.Before(r.From) && day.Before(r.To)
}

// Totals partitions counts into the clean headline metrics and the filtered
// fraud line, with zero-guarded rates.
type Totals struct {
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	Suspicious     int64   `json:"suspicious"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
}

func (t *Totals) add(typ domain.EventType, suspicious bool, n int64) {
	if suspicious {
		t.Suspicious += n
		return
	}
	switch typ {
	case domain.EventImpression:
		t.Impressions += n
	case domain.EventClick:
		t.Clicks += n
	case domain.EventConversion:
		t.Conversions += n
	}
}

// finalize computes the derived rates. Zero denominators yield zero, never a
// division error.
func (t *Totals) finalize() {
	if t.Impressions > 0 {
		t.CTR = float64(t.Clicks) / float64(t.Impressions)
	}
	if t.Clicks > 0 {
		t.ConversionRate = float64(t.Conversions) / float64(t.Clicks)
	}
}

type DayStats struct {
	Day string `json:"day"`
	Totals
}

type BreakdownStats struct {
	Key string `json:"key"`
	Totals
}

type AdStats struct {
	AdID  string `json:"ad_id"`
	Title string `json:"title"`
	Totals
}

type Service struct {
	stats StatsRepo
	cache Cache
	clock Clock

	ttlOpen   time.Duration // ranges including today
	ttlClosed time.Duration // fully-past ranges
}

func New(stats StatsRepo, cache Cache, clock Clock, ttlOpen, ttlClosed time.Duration) *Service {
	if ttlOpen == 0 {
		ttlOpen = 5 * time.Minute
	}
	if ttlClosed == 0 {
		ttlClosed = 60 * time.Minute
	}
	return &Service{stats: stats, cache: cache, clock: clock, ttlOpen: ttlOpen, ttlClosed: ttlClosed}
}

// tier picks the cache prefix and TTL for a range: open-ended ranges churn and
// get the short-lived day-bucket prefix, closed ranges are stable history.
func (s *Service) tier(r Range) (prefix string, ttl time.Duration) {
	now := s.clock.Now()
	if r.IncludesDay(now) || r.To.After(now) {
		return OpenPrefix(now), s.ttlOpen
	}
	return prefixClosed, s.ttlClosed
}

func (s *Service) DailySeries(ctx context.Context, r Range) ([]DayStats, error) {
	prefix, ttl := s.tier(r)
	var out []DayStats
	err := s.cache.Remember(ctx, prefix, rangeKey("daily", r.From, r.To), ttl, &out, func(ctx context.Context) error {
		rows, err := s.stats.DailySeries(ctx, r.From, r.To)
		if err != nil {
			return err
		}
		out = foldSeries(rows)
		return nil
	})
	return out, err
}

func (s *Service) ByDevice(ctx context.Context, r Range) ([]BreakdownStats, error) {
	return s.breakdown(ctx, r, "devices", s.stats.ByDevice)
}

func (s *Service) ByCountry(ctx context.Context, r Range) ([]BreakdownStats, error) {
	return s.breakdown(ctx, r, "countries", s.stats.ByCountry)
}

func (s *Service) breakdown(ctx context.Context, r Range, name string, query func(context.Context, time.Time, time.Time) ([]BreakdownRow, error)) ([]BreakdownStats, error) {
	prefix, ttl := s.tier(r)
	var out []BreakdownStats
	err := s.cache.Remember(ctx, prefix, rangeKey(name, r.From, r.To), ttl, &out, func(ctx context.Context) error {
		rows, err := query(ctx, r.From, r.To)
		if err != nil {
			return err
		}
		byKey := map[string]*Totals{}
		var keys []string
		for _, row := range rows {
			t, ok := byKey[row.Key]
			if !ok {
				t = &Totals{}
				byKey[row.Key] = t
				keys = append(keys, row.Key)
			}
			t.add(row.Type, row.Suspicious, row.Count)
		}
		sort.Strings(keys)
		out = make([]BreakdownStats, 0, len(keys))
		for _, k := range keys {
			t := byKey[k]
			t.finalize()
			out = append(out, BreakdownStats{Key: k, Totals: *t})
		}
		return nil
	})
	return out, err
}

func (s *Service) TopAds(ctx context.Context, r Range, metric string, limit int) ([]AdStats, error) {
	switch metric {
	case "impressions", "clicks", "conversions":
	default:
		return nil, domain.ErrValidationMeta("invalid metric", map[string]string{
			"metric": "must be one of: impressions, clicks, conversions",
		})
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	prefix, ttl := s.tier(r)
	key := rangeKey(fmt.Sprintf("top:%s:%d", metric, limit), r.From, r.To)
	var out []AdStats
	err := s.cache.Remember(ctx, prefix, key, ttl, &out, func(ctx context.Context) error {
		rows, err := s.stats.TopAds(ctx, r.From, r.To)
		if err != nil {
			return err
		}
		out = make([]AdStats, 0, len(rows))
		for _, row := range rows {
			t := Totals{
				Impressions: row.Impressions,
				Clicks:      row.Clicks,
				Conversions: row.Conversions,
				Suspicious:  row.Suspicious,
			}
			t.finalize()
			out = append(out, AdStats{AdID: row.AdID, Title: row.Title, Totals: t})
		}
		sort.SliceStable(out, func(i, j int) bool {
			return metricOf(out[i].Totals, metric) > metricOf(out[j].Totals, metric)
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

// AdSummary is the per-ad daily rollup behind the ad detail dashboard.
func (s *Service) AdSummary(ctx context.Context, adID string, r Range) ([]DayStats, error) {
	_, ttl := s.tier(r)
	var out []DayStats
	err := s.cache.Remember(ctx, AdPrefix(adID), rangeKey("summary", r.From, r.To), ttl, &out, func(ctx context.Context) error {
		rows, err := s.stats.AdSeries(ctx, adID, r.From, r.To)
		if err != nil {
			return err
		}
		out = foldSeries(rows)
		return nil
	})
	return out, err
}

func foldSeries(rows []SeriesRow) []DayStats {
	byDay := map[string]*Totals{}
	var days []string
	for _, row := range rows {
		day := DayBucket(row.Day)
		t, ok := byDay[day]
		if !ok {
			t = &Totals{}
			byDay[day] = t
			days = append(days, day)
		}
		t.add(row.Type, row.Suspicious, row.Count)
	}
	sort.Strings(days)
	out := make([]DayStats, 0, len(days))
	for _, d := range days {
		t := byDay[d]
		t.finalize()
		out = append(out, DayStats{Day: d, Totals: *t})
	}
	return out
}

func metricOf(t Totals, metric string) int64 {
	switch metric {
	case "clicks":
		return t.Clicks
	case "conversions":
		return t.Conversions
	default:
		return t.Impressions
	}
}
