package ads

import (
	"context"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

// Service is the ad catalog: cache-fronted reads for serving, administrative
// mutations for the external admin collaborator. Every write invalidates the
// ad's own cache key and its position prefix before returning, so readers are
// never stale beyond the TTL bound.
type Service struct {
	repo  AdRepo
	cache Cache
	clock Clock

	ttlDetails time.Duration
	ttlList    time.Duration
	ttlSelect  time.Duration
}

func New(repo AdRepo, cache Cache, clock Clock, ttlDetails, ttlList, ttlSelect time.Duration) *Service {
	if ttlDetails == 0 {
		ttlDetails = 15 * time.Minute
	}
	if ttlList == 0 {
		ttlList = 15 * time.Minute
	}
	if ttlSelect == 0 {
		ttlSelect = 2 * time.Minute
	}
	return &Service{
		repo:       repo,
		cache:      cache,
		clock:      clock,
		ttlDetails: ttlDetails,
		ttlList:    ttlList,
		ttlSelect:  ttlSelect,
	}
}

// Get returns the ad whatever its state; soft-deleted ads stay visible to the
// admin surface and to historical analytics. Serving paths filter separately.
func (s *Service) Get(ctx context.Context, id string) (*domain.Ad, error) {
	var ad *domain.Ad
	err := s.cache.Remember(ctx, DetailPrefix, id, s.ttlDetails, &ad, func(ctx context.Context) error {
		var err error
		ad, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, domain.ErrNotFound("ad not found")
	}
	return ad, nil
}

// ListActive returns serve-eligible ads for a position at asOf. The repo
// result is cached per position; eligibility is re-derived on every read since
// a cached row can age past its date window within the TTL.
func (s *Service) ListActive(ctx context.Context, pos domain.Position, asOf time.Time) ([]*domain.Ad, error) {
	if !pos.Valid() {
		return nil, domain.ErrValidationMeta("invalid position", map[string]string{"position": string(pos)})
	}

	var list []*domain.Ad
	err := s.cache.Remember(ctx, positionPrefix(pos), keyActiveList, s.ttlList, &list, func(ctx context.Context) error {
		var err error
		list, err = s.repo.ListEligible(ctx, pos, asOf)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := list[:0]
	for _, a := range list {
		if a.EligibleAt(asOf) {
			out = append(out, a)
		}
	}
	return out, nil
}

type CreateCmd struct {
	Title       string
	Description string
	ImageURL    string
	TargetURL   string
	Position    domain.Position
	Size        string
	Active      bool
	Budget      float64
	StartDate   *time.Time
	EndDate     *time.Time
	Priority    int
}

func (s *Service) Create(ctx context.Context, cmd CreateCmd) (*domain.Ad, error) {
	ad, err := domain.NewAd(cmd.Title, cmd.Description, cmd.ImageURL, cmd.TargetURL,
		cmd.Position, cmd.Size, cmd.Active, cmd.Budget, cmd.StartDate, cmd.EndDate,
		cmd.Priority, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ad); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ad.ID, ad.Position)
	return ad, nil
}

func (s *Service) Update(ctx context.Context, id string, patch domain.AdPatch) (*domain.Ad, error) {
	// Strict read for mutation; the cached copy may lag.
	ad, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPos := ad.Position
	if err := ad.ApplyPatch(patch, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ad); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ad.ID, ad.Position)
	if oldPos != ad.Position {
		s.cache.FlushPrefix(ctx, positionPrefix(oldPos))
	}
	return ad, nil
}

// SoftDelete archives the ad: it stops serving immediately (modulo TTL) but
// its row and its events remain for audit and analytics.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	ad, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := ad.SoftDelete(s.clock.Now()); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, ad); err != nil {
		return err
	}
	s.invalidate(ctx, ad.ID, ad.Position)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id string, pos domain.Position) {
	s.cache.Forget(ctx, DetailPrefix, id)
	s.cache.FlushPrefix(ctx, positionPrefix(pos))
}
