package dto

import "time"

type CreateAdReq struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	TargetURL   string     `json:"target_url"`
	Position    string     `json:"position"`
	Size        string     `json:"size"`
	Active      bool       `json:"active"`
	Budget      float64    `json:"budget"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Priority    int        `json:"priority"`
}

type UpdateAdReq struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	TargetURL   *string    `json:"target_url,omitempty"`
	Position    *string    `json:"position,omitempty"`
	Size        *string    `json:"size,omitempty"`
	Active      *bool      `json:"active,omitempty"`
	Budget      *float64   `json:"budget,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ClearStart  bool       `json:"clear_start_date,omitempty"`
	ClearEnd    bool       `json:"clear_end_date,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
}

type RecordEventReq struct {
	AdID      string `json:"ad_id"`
	EventType string `json:"event_type"`
	PageURL   string `json:"page_url"`
	Referer   string `json:"referer"`
}
