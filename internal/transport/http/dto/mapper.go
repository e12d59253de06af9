package dto

import (
	"time"

	"github.com/promokit/adserve/internal/domain"
)

func ToAdResp(a *domain.Ad, now time.Time) AdResp {
	return AdResp{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		ImageURL:    a.ImageURL,
		TargetURL:   a.TargetURL,
		Position:    string(a.Position),
		Size:        a.Size,
		Active:      a.Active,
		Budget:      a.Budget,
		Priority:    a.Priority,
		StartDate:   a.StartDate,
		EndDate:     a.EndDate,
		Impressions: a.Impressions,
		Clicks:      a.Clicks,
		Conversions: a.Conversions,
		DeletedAt:   a.DeletedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		Eligible:    a.EligibleAt(now),
	}
}

func ToServeResp(a *domain.Ad) ServeResp {
	return ServeResp{
		ID:        a.ID,
		Title:     a.Title,
		ImageURL:  a.ImageURL,
		TargetURL: a.TargetURL,
		Position:  string(a.Position),
		Size:      a.Size,
	}
}

// ToPatch converts the wire-level partial update into the domain patch.
func ToPatch(req UpdateAdReq) domain.AdPatch {
	p := domain.AdPatch{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		TargetURL:   req.TargetURL,
		Size:        req.Size,
		Active:      req.Active,
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ClearStart:  req.ClearStart,
		ClearEnd:    req.ClearEnd,
		Priority:    req.Priority,
	}
	if req.Position != nil {
		pos := domain.Position(*req.Position)
		p.Position = &pos
	}
	return p
}
