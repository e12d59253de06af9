package fraud

import (
	"context"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

// History is the short-lookback slice of recorded events the rules consult.
// Implementations must answer from a bounded (ad, ip, type, since) window,
// never a full scan; every event-recording call waits on these queries.
type History interface {
	CountRecent(ctx context.Context, adID, ip string, t domain.EventType, since time.Time) (int, error)
	ExistsRecent(ctx context.Context, adID, ip string, t domain.EventType, since time.Time) (bool, error)
}

// Limits are the rule thresholds. Zero values fall back to defaults.
type Limits struct {
	ImpressionsPerWindow int
	ClicksPerWindow      int
	ConversionsPerWindow int
	VelocityWindow       time.Duration
	Lookback             time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.ImpressionsPerWindow == 0 {
		l.ImpressionsPerWindow = 20
	}
	if l.ClicksPerWindow == 0 {
		l.ClicksPerWindow = 1
	}
	if l.ConversionsPerWindow == 0 {
		l.ConversionsPerWindow = 5
	}
	if l.VelocityWindow == 0 {
		l.VelocityWindow = time.Minute
	}
	if l.Lookback == 0 {
		l.Lookback = 30 * time.Minute
	}
	return l
}

// Sample is the about-to-be-recorded event under classification. It has not
// been persisted yet, so history counts never include it.
type Sample struct {
	AdID      string
	Type      domain.EventType
	IP        string
	UserAgent string
	At        time.Time
}

type Verdict struct {
	Suspicious bool
	Reason     domain.FraudReason
}

// Rule is a pure predicate over one sample and its history window. A non-nil
// verdict ends evaluation.
type Rule func(ctx context.Context, s Sample, h History, l Limits) (*Verdict, error)

// Detector runs an ordered rule list, first match wins. It holds no state of
// its own; all state lives in the event history.
type Detector struct {
	history History
	limits  Limits
	rules   []Rule
}

func New(history History, limits Limits) *Detector {
	return &Detector{
		history: history,
		limits:  limits.withDefaults(),
		rules: []Rule{
			botUserAgent,
			velocityLimit,
			clickWithoutImpression,
			conversionWithoutClick,
		},
	}
}

// Score classifies one sample. A clean event satisfies no rule.
func (d *Detector) Score(ctx context.Context, s Sample) (Verdict, error) {
	for _, rule := range d.rules {
		v, err := rule(ctx, s, d.history, d.limits)
		if err != nil {
			return Verdict{}, err
		}
		if v != nil {
			return *v, nil
		}
	}
	return Verdict{}, nil
}
