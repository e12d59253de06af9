package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/promokit/adserve/internal/application/ads"
	"github.com/promokit/adserve/internal/domain"
	"github.com/promokit/adserve/internal/metrics"
	"github.com/promokit/adserve/internal/transport/http/dto"
	"github.com/promokit/adserve/internal/transport/http/response"
)

type Clock interface{ Now() time.Time }

// ServeHandler is the public serving surface: one GET per page slot, on the
// hot path of every page render.
type ServeHandler struct {
	catalog *ads.Service
	clock   Clock
}

func NewServeHandler(catalog *ads.Service, clock Clock) *ServeHandler {
	return &ServeHandler{catalog: catalog, clock: clock}
}

func (h *ServeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	pos := domain.Position(chi.URLParam(r, "position"))
	if !pos.Valid() {
		response.Err(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{
			"position": "unknown position",
		}))
		return
	}

	ad, err := h.catalog.SelectForPosition(r.Context(), pos, h.clock.Now().UTC())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	metrics.RecordSelection(string(pos), ad != nil)

	if ad == nil {
		// An empty slot is a normal outcome, not an error.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	response.Data(w, http.StatusOK, dto.ToServeResp(ad))
}
