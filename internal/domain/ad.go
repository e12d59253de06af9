package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ad is a promotional unit served into a page position. Counters reflect only
// non-suspicious events and are mutated exclusively by the event ingestor.
type Ad struct {
	ID          string
	Title       string
	Description string
	ImageURL    string
	TargetURL   string
	Position    Position
	Size        string
	Active      bool
	Budget      float64 // monetary ceiling, informational
	StartDate   *time.Time
	EndDate     *time.Time
	Priority    int

	Impressions int64
	Clicks      int64
	Conversions int64

	DeletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewAd(title, description, imageURL, targetURL string, pos Position, size string, active bool, budget float64, start, end *time.Time, priority int, now time.Time) (*Ad, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	targetURL = strings.TrimSpace(targetURL)
	size = strings.TrimSpace(size)

	if title == "" || len(title) > 160 {
		return nil, ErrValidation("title is required and must be <= 160 chars")
	}
	if targetURL == "" || len(targetURL) > 2048 {
		return nil, ErrValidation("target_url is required and must be <= 2048 chars")
	}
	if !pos.Valid() {
		return nil, ErrValidationMeta("invalid position", map[string]string{"position": string(pos)})
	}
	if budget < 0 {
		return nil, ErrValidation("budget must be >= 0")
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, ErrValidation("end_date must be >= start_date")
	}

	ad := &Ad{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		ImageURL:    strings.TrimSpace(imageURL),
		TargetURL:   targetURL,
		Position:    pos,
		Size:        size,
		Active:      active,
		Budget:      budget,
		Priority:    priority,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if start != nil {
		t := start.UTC()
		ad.StartDate = &t
	}
	if end != nil {
		t := end.UTC()
		ad.EndDate = &t
	}
	return ad, nil
}

// EligibleAt reports whether the ad may serve at the given instant. Eligibility
// is derived from persisted fields every time; there is no stored "expired"
// state. Date bounds are inclusive and open when null. An inverted window
// (end before start) is never eligible, so rows predating write-time validation
// cannot serve.
func (a *Ad) EligibleAt(now time.Time) bool {
	if !a.Active || a.DeletedAt != nil {
		return false
	}
	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		return false
	}
	if a.StartDate != nil && now.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && now.After(*a.EndDate) {
		return false
	}
	return true
}

// AdPatch carries optional admin updates; nil fields are left untouched.
type AdPatch struct {
	Title       *string
	Description *string
	ImageURL    *string
	TargetURL   *string
	Position    *Position
	Size        *string
	Active      *bool
	Budget      *float64
	StartDate   *time.Time
	EndDate     *time.Time
	ClearStart  bool
	ClearEnd    bool
	Priority    *int
}

func (a *Ad) ApplyPatch(p AdPatch, now time.Time) error {
	if a.DeletedAt != nil {
		return ErrInvalidState("deleted ad cannot be updated")
	}
	if p.Title != nil {
		v := strings.TrimSpace(*p.Title)
		if v == "" || len(v) > 160 {
			return ErrValidation("title must be non-empty and <= 160 chars")
		}
		a.Title = v
	}
	if p.Description != nil {
		a.Description = strings.TrimSpace(*p.Description)
	}
	if p.ImageURL != nil {
		a.ImageURL = strings.TrimSpace(*p.ImageURL)
	}
	if p.TargetURL != nil {
		v := strings.TrimSpace(*p.TargetURL)
		if v == "" || len(v) > 2048 {
			return ErrValidation("target_url must be non-empty and <= 2048 chars")
		}
		a.TargetURL = v
	}
	if p.Position != nil {
		if !p.Position.Valid() {
			return ErrValidationMeta("invalid position", map[string]string{"position": string(*p.Position)})
		}
		a.Position = *p.Position
	}
	if p.Size != nil {
		a.Size = strings.TrimSpace(*p.Size)
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	if p.Budget != nil {
		if *p.Budget < 0 {
			return ErrValidation("budget must be >= 0")
		}
		a.Budget = *p.Budget
	}
	if p.ClearStart {
		a.StartDate = nil
	} else if p.StartDate != nil {
		t := p.StartDate.UTC()
		a.StartDate = &t
	}
	if p.ClearEnd {
		a.EndDate = nil
	} else if p.EndDate != nil {
		t := p.EndDate.UTC()
		a.EndDate = &t
	}
	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		return ErrValidation("end_date must be >= start_date")
	}
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	a.UpdatedAt = now.UTC()
	return nil
}

func (a *Ad) SoftDelete(now time.Time) error {
	if a.DeletedAt != nil {
		return ErrInvalidState("ad already deleted")
	}
	t := now.UTC()
	a.DeletedAt = &t
	a.UpdatedAt = t
	return nil
}
