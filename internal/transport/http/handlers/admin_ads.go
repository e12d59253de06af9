package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/promokit/adserve/internal/application/ads"
	"github.com/promokit/adserve/internal/domain"
	"github.com/promokit/adserve/internal/transport/http/dto"
	"github.com/promokit/adserve/internal/transport/http/response"
	"github.com/promokit/adserve/internal/transport/http/validate"
)

// AdminAdsHandler is the catalog mutation surface, reachable only through the
// admin JWT group.
type AdminAdsHandler struct {
	catalog *ads.Service
	clock   Clock
}

func NewAdminAdsHandler(catalog *ads.Service, clock Clock) *AdminAdsHandler {
	return &AdminAdsHandler{catalog: catalog, clock: clock}
}

func (h *AdminAdsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAdReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, domain.ErrValidation("invalid json body"))
		return
	}

	ad, err := h.catalog.Create(r.Context(), ads.CreateCmd{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		TargetURL:   req.TargetURL,
		Position:    domain.Position(req.Position),
		Size:        req.Size,
		Active:      req.Active,
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Priority:    req.Priority,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, dto.ToAdResp(ad, h.clock.Now().UTC()))
}

func (h *AdminAdsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.adID(w, r)
	if !ok {
		return
	}
	ad, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToAdResp(ad, h.clock.Now().UTC()))
}

func (h *AdminAdsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.adID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateAdReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, domain.ErrValidation("invalid json body"))
		return
	}

	ad, err := h.catalog.Update(r.Context(), id, dto.ToPatch(req))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ToAdResp(ad, h.clock.Now().UTC()))
}

func (h *AdminAdsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.adID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.SoftDelete(r.Context(), id); err != nil {
		response.Err(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminAdsHandler) adID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "ad_id")
	if !validate.IsUUID(id) {
		response.Err(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{
			"ad_id": "must be uuid",
		}))
		return "", false
	}
	return id, true
}
