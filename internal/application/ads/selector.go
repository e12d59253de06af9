package ads

import (
	"context"
	"sort"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

// SelectForPosition picks the single ad to serve in a slot: highest priority
// wins, equal priorities go to the earliest-created ad, which gives
// earlier-onboarded advertisers a stable edge. Returns nil when nothing is
// eligible. The outcome (including "none") is cached per position at the
// short tier; a full catalog scan is too expensive to repeat on every page.
func (s *Service) SelectForPosition(ctx context.Context, pos domain.Position, asOf time.Time) (*domain.Ad, error) {
	if !pos.Valid() {
		return nil, domain.ErrValidationMeta("invalid position", map[string]string{"position": string(pos)})
	}

	var winner *domain.Ad
	err := s.cache.Remember(ctx, positionPrefix(pos), keyWinner, s.ttlSelect, &winner, func(ctx context.Context) error {
		var err error
		winner, err = s.pickWinner(ctx, pos, asOf)
		return err
	})
	if err != nil {
		return nil, err
	}

	// A cached winner can age out of its date window before the TTL does.
	// Re-derive eligibility and recompute rather than serve it.
	if winner != nil && !winner.EligibleAt(asOf) {
		s.cache.Forget(ctx, positionPrefix(pos), keyWinner)
		return s.pickWinner(ctx, pos, asOf)
	}
	return winner, nil
}

func (s *Service) pickWinner(ctx context.Context, pos domain.Position, asOf time.Time) (*domain.Ad, error) {
	list, err := s.ListActive(ctx, pos, asOf)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority > list[j].Priority
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list[0], nil
}
