package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/promokit/adserve/internal/application/ads"
	"github.com/promokit/adserve/internal/application/analytics"
	"github.com/promokit/adserve/internal/application/fraud"
	"github.com/promokit/adserve/internal/domain"
	"github.com/promokit/adserve/internal/metrics"
)

const (
	replayRouteEvent   = "replay.event"
	replayRouteCounter = "replay.counter"
)

// RequestContext is what the transport layer knows about the reporter.
type RequestContext struct {
	IP        string
	UserAgent string
	PageURL   string
	Referer   string
	Country   string
	City      string
}

// Result reports what the ingestor did. The HTTP layer must not expose the
// fraud fields: an adversary probing responses learns nothing either way.
type Result struct {
	EventID    string
	Suspicious bool
	Reason     domain.FraudReason
}

type Service struct {
	catalog  AdResolver
	events   EventRepo
	detector *fraud.Detector
	cache    Cache
	replay   ReplayPublisher
	clock    Clock

	lookbackTimeout time.Duration
	retryAttempts   int
	retryBackoff    time.Duration
}

func New(catalog AdResolver, events EventRepo, detector *fraud.Detector, cache Cache, replay ReplayPublisher, clock Clock, lookbackTimeout time.Duration, retryAttempts int, retryBackoff time.Duration) *Service {
	if lookbackTimeout == 0 {
		lookbackTimeout = 50 * time.Millisecond
	}
	if retryAttempts == 0 {
		retryAttempts = 3
	}
	if retryBackoff == 0 {
		retryBackoff = 50 * time.Millisecond
	}
	return &Service{
		catalog:         catalog,
		events:          events,
		detector:        detector,
		cache:           cache,
		replay:          replay,
		clock:           clock,
		lookbackTimeout: lookbackTimeout,
		retryAttempts:   retryAttempts,
		retryBackoff:    retryBackoff,
	}
}

// Record validates, scores, persists and counts one reported interaction.
// The event row is written whatever the fraud verdict (the audit trail is
// never dropped); only the counter increment is withheld for suspicious
// events. Callers see success either way.
func (s *Service) Record(ctx context.Context, adID string, eventType domain.EventType, rc RequestContext) (Result, error) {
	if !eventType.Valid() {
		return Result{}, domain.ErrValidationMeta("invalid event type", map[string]string{
			"event_type": "must be one of: impression, click, conversion",
		})
	}

	ad, err := s.catalog.Get(ctx, adID)
	if err != nil {
		return Result{}, err
	}
	if ad.DeletedAt != nil {
		return Result{}, domain.ErrNotFound("ad not found")
	}

	now := s.clock.Now().UTC()
	verdict := s.score(ctx, adID, eventType, rc, now)

	ev := &domain.AdEvent{
		ID:          uuid.NewString(),
		AdID:        adID,
		Type:        eventType,
		IP:          rc.IP,
		UserAgent:   rc.UserAgent,
		PageURL:     rc.PageURL,
		Referer:     rc.Referer,
		Device:      domain.DeviceFromUserAgent(rc.UserAgent),
		Country:     rc.Country,
		City:        rc.City,
		Suspicious:  verdict.Suspicious,
		FraudReason: verdict.Reason,
		CreatedAt:   now,
	}

	if err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.events.Insert(ctx, ev)
	}); err != nil {
		if !isTransient(err) {
			return Result{}, err
		}
		// The event must not be lost: queue it for replay before giving up.
		if perr := s.replay.Publish(ctx, replayRouteEvent, ev.ID, ev); perr != nil {
			zlog.Error().Err(perr).
				Str("ad_id", adID).
				Str("event_id", ev.ID).
				Str("event_type", string(eventType)).
				Interface("event", ev).
				Msg("event insert and replay both failed, event dumped to log")
			return Result{}, err
		}
		metrics.RecordCounterReplay()
		zlog.Warn().Str("event_id", ev.ID).Msg("event insert failed, queued for replay")
		// Queued counts as recorded from the caller's point of view.
		metrics.RecordAdEvent(string(eventType), ev.Suspicious, string(ev.FraudReason))
		return Result{EventID: ev.ID, Suspicious: ev.Suspicious, Reason: ev.FraudReason}, nil
	}

	if !verdict.Suspicious {
		s.incrementCounter(ctx, adID, eventType, now, ev.ID)
	}

	// Synchronous invalidation: the event just changed this ad's rollups and
	// today's bucket. Catalog detail carries counters too.
	s.cache.FlushPrefix(ctx, analytics.AdPrefix(adID))
	s.cache.FlushPrefix(ctx, analytics.OpenPrefix(now))
	s.cache.Forget(ctx, ads.DetailPrefix, adID)

	metrics.RecordAdEvent(string(eventType), ev.Suspicious, string(ev.FraudReason))
	return Result{EventID: ev.ID, Suspicious: ev.Suspicious, Reason: ev.FraudReason}, nil
}

// score runs the fraud rules under the lookback budget. A failing or timed-out
// history query fails open to "clean": classification is best-effort and must
// not block ingestion. The reconciler cannot restore a wrongly-clean verdict,
// but a lost event would be worse.
func (s *Service) score(ctx context.Context, adID string, t domain.EventType, rc RequestContext, now time.Time) fraud.Verdict {
	sctx, cancel := context.WithTimeout(ctx, s.lookbackTimeout)
	defer cancel()

	verdict, err := s.detector.Score(sctx, fraud.Sample{
		AdID:      adID,
		Type:      t,
		IP:        rc.IP,
		UserAgent: rc.UserAgent,
		At:        now,
	})
	if err != nil {
		zlog.Warn().Err(err).Str("ad_id", adID).Msg("fraud scoring failed, recording as clean")
		return fraud.Verdict{}
	}
	return verdict
}

func (s *Service) incrementCounter(ctx context.Context, adID string, t domain.EventType, now time.Time, eventID string) {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.events.IncrementCounter(ctx, adID, t, now)
	})
	if err == nil {
		return
	}
	if !isTransient(err) {
		zlog.Error().Err(err).Str("ad_id", adID).Msg("counter increment rejected")
		return
	}

	metrics.RecordCounterReplay()
	intent := counterIntent{AdID: adID, EventType: t, EventID: eventID, At: now}
	if perr := s.replay.Publish(ctx, replayRouteCounter, eventID, intent); perr != nil {
		zlog.Error().Err(perr).
			Str("ad_id", adID).
			Str("event_id", eventID).
			Str("event_type", string(t)).
			Msg("counter increment and replay both failed; reconciler will repair")
		return
	}
	zlog.Warn().Str("ad_id", adID).Str("event_id", eventID).Msg("counter increment queued for replay")
}

// counterIntent is the replay payload for a withheld increment. EventID keys
// consumer-side dedupe.
type counterIntent struct {
	AdID      string           `json:"ad_id"`
	EventType domain.EventType `json:"event_type"`
	EventID   string           `json:"event_id"`
	At        time.Time        `json:"at"`
}

func (s *Service) withRetry(ctx context.Context, op func(context.Context) error) error {
	var err error
	backoff := s.retryBackoff
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return domain.ErrTransient(ctx.Err().Error())
			}
			backoff *= 2
		}
		if err = op(ctx); err == nil || !isTransient(err) {
			return err
		}
	}
	return err
}

func isTransient(err error) bool {
	var ae *domain.AppError
	return errors.As(err, &ae) && ae.Code == domain.CodeTransient
}
