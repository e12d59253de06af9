package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/promokit/adserve/internal/application/analytics"
	"github.com/promokit/adserve/internal/domain"
	"github.com/promokit/adserve/internal/transport/http/response"
	"github.com/promokit/adserve/internal/transport/http/validate"
)

const dayLayout = "2006-01-02"

type AnalyticsHandler struct {
	svc   *analytics.Service
	clock Clock
}

func NewAnalyticsHandler(svc *analytics.Service, clock Clock) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, clock: clock}
}

// parseRange reads ?from=YYYY-MM-DD&to=YYYY-MM-DD, inclusive on both ends.
// Missing bounds default to the last seven days.
func (h *AnalyticsHandler) parseRange(r *http.Request) (analytics.Range, error) {
	now := h.clock.Now().UTC()
	to := now
	from := now.AddDate(0, 0, -6)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(dayLayout, v)
		if err != nil {
			return analytics.Range{}, domain.ErrValidationMeta("invalid query param", map[string]string{
				"from": "must be YYYY-MM-DD",
			})
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(dayLayout, v)
		if err != nil {
			return analytics.Range{}, domain.ErrValidationMeta("invalid query param", map[string]string{
				"to": "must be YYYY-MM-DD",
			})
		}
		to = t
	}
	return analytics.NewRange(from, to)
}

func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	out, err := h.svc.DailySeries(r.Context(), rng)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, out)
}

func (h *AnalyticsHandler) Devices(w http.ResponseWriter, r *http.Request) {
	h.breakdown(w, r, h.svc.ByDevice)
}

func (h *AnalyticsHandler) Countries(w http.ResponseWriter, r *http.Request) {
	h.breakdown(w, r, h.svc.ByCountry)
}

func (h *AnalyticsHandler) breakdown(w http.ResponseWriter, r *http.Request, query func(context.Context, analytics.Range) ([]analytics.BreakdownStats, error)) {
	rng, err := h.parseRange(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	out, err := query(r.Context(), rng)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, out)
}

func (h *AnalyticsHandler) Top(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "impressions"
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	out, err := h.svc.TopAds(r.Context(), rng, metric, limit)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, out)
}

func (h *AnalyticsHandler) AdSummary(w http.ResponseWriter, r *http.Request) {
	adID := chi.URLParam(r, "ad_id")
	if !validate.IsUUID(adID) {
		response.Err(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{
			"ad_id": "must be uuid",
		}))
		return
	}
	rng, err := h.parseRange(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	out, err := h.svc.AdSummary(r.Context(), adID, rng)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, out)
}
