package fraud

import (
	"context"
	"strings"

	"github.com/promokit/adserve/internal/domain"
)

// Known crawler and tooling signatures, matched case-insensitively as
// substrings of the User-Agent.
var botSignatures = []string{
	"bot",
	"crawler",
	"spider",
	"slurp",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"okhttp",
	"java/",
	"libwww",
	"httpclient",
	"headless",
	"phantomjs",
	"scrapy",
	"selenium",
	"facebookexternalhit",
}

func botUserAgent(_ context.Context, s Sample, _ History, _ Limits) (*Verdict, error) {
	ua := strings.ToLower(strings.TrimSpace(s.UserAgent))
	if ua == "" {
		return &Verdict{Suspicious: true, Reason: domain.ReasonBotUA}, nil
	}
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig) {
			return &Verdict{Suspicious: true, Reason: domain.ReasonBotUA}, nil
		}
	}
	return nil, nil
}

// velocityLimit flags the N+1th same-type event from one (IP, ad) pair inside
// the rolling window. The sample itself is not yet persisted, so a prior count
// at the cap means this event is over it.
func velocityLimit(ctx context.Context, s Sample, h History, l Limits) (*Verdict, error) {
	var limit int
	switch s.Type {
	case domain.EventImpression:
		limit = l.ImpressionsPerWindow
	case domain.EventClick:
		limit = l.ClicksPerWindow
	case domain.EventConversion:
		limit = l.ConversionsPerWindow
	default:
		return nil, nil
	}

	since := s.At.Add(-l.VelocityWindow)
	n, err := h.CountRecent(ctx, s.AdID, s.IP, s.Type, since)
	if err != nil {
		return nil, err
	}
	if n >= limit {
		return &Verdict{Suspicious: true, Reason: domain.ReasonRateLimit}, nil
	}
	return nil, nil
}

func clickWithoutImpression(ctx context.Context, s Sample, h History, l Limits) (*Verdict, error) {
	if s.Type != domain.EventClick {
		return nil, nil
	}
	return requirePrior(ctx, s, h, l, domain.EventImpression, domain.ReasonNoPriorImpression)
}

func conversionWithoutClick(ctx context.Context, s Sample, h History, l Limits) (*Verdict, error) {
	if s.Type != domain.EventConversion {
		return nil, nil
	}
	return requirePrior(ctx, s, h, l, domain.EventClick, domain.ReasonNoPriorClick)
}

func requirePrior(ctx context.Context, s Sample, h History, l Limits, prior domain.EventType, reason domain.FraudReason) (*Verdict, error) {
	since := s.At.Add(-l.Lookback)
	ok, err := h.ExistsRecent(ctx, s.AdID, s.IP, prior, since)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Verdict{Suspicious: true, Reason: reason}, nil
	}
	return nil, nil
}
