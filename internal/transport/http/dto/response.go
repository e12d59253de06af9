package dto

import "time"

// AdResp is the stable admin-facing API model; counters ride along so the
// dashboard needs no extra roundtrip.
type AdResp struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	TargetURL   string `json:"target_url"`
	Position    string `json:"position"`
	Size        string `json:"size,omitempty"`

	Active   bool    `json:"active"`
	Budget   float64 `json:"budget"`
	Priority int     `json:"priority"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
	Conversions int64 `json:"conversions"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Derived
	Eligible bool `json:"eligible"`
}

// ServeResp is the public serving payload: only what the page needs to render
// the creative. Counters, budget and fraud state never leave the admin surface.
type ServeResp struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url,omitempty"`
	TargetURL string `json:"target_url"`
	Position  string `json:"position"`
	Size      string `json:"size,omitempty"`
}

// EventAccepted deliberately omits the fraud verdict.
type EventAccepted struct {
	EventID string `json:"event_id"`
}
