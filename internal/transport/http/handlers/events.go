package handlers

import (
	"net"
	"net/http"

	"github.com/promokit/adserve/internal/application/ingest"
	"github.com/promokit/adserve/internal/domain"
	"github.com/promokit/adserve/internal/transport/http/dto"
	"github.com/promokit/adserve/internal/transport/http/response"
	"github.com/promokit/adserve/internal/transport/http/validate"
)

type EventsHandler struct {
	ingestor *ingest.Service
}

func NewEventsHandler(ingestor *ingest.Service) *EventsHandler {
	return &EventsHandler{ingestor: ingestor}
}

// Record accepts one reported interaction. The response is identical for clean
// and suspicious events; the verdict stays server-side.
func (h *EventsHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordEventReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, domain.ErrValidation("invalid json body"))
		return
	}
	if !validate.IsUUID(req.AdID) {
		response.Err(w, r, domain.ErrValidationMeta("invalid body", map[string]string{
			"ad_id": "must be uuid",
		}))
		return
	}

	referer := req.Referer
	if referer == "" {
		referer = r.Referer()
	}

	res, err := h.ingestor.Record(r.Context(), req.AdID, domain.EventType(req.EventType), ingest.RequestContext{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		PageURL:   req.PageURL,
		Referer:   referer,
		Country:   r.Header.Get("X-Geo-Country"),
		City:      r.Header.Get("X-Geo-City"),
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.Data(w, http.StatusAccepted, dto.EventAccepted{EventID: res.EventID})
}

// clientIP strips the port RealIP leaves on RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
