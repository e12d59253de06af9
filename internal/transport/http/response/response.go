package response

import (
	"encoding/json"
	"errors"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/promokit/adserve/internal/domain"
)

type errBody struct {
	Error errPayload `json:"error"`
}

type errPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Data writes a JSON success envelope.
func Data(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("response encode failed")
	}
}

// Fail writes a JSON error envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, code, message string, meta map[string]string, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errBody{Error: errPayload{
		Code:      code,
		Message:   message,
		Meta:      meta,
		RequestID: requestID,
	}})
}

// Err maps a domain error onto the wire. Anything that is not an AppError is a
// 500 whose details stay in the logs.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	requestID := RequestIDFromRequest(r)

	if err == nil {
		Fail(w, http.StatusInternalServerError, "internal_error", "unknown error", nil, requestID)
		return
	}

	var ae *domain.AppError
	if errors.As(err, &ae) {
		Fail(w, statusFromCode(ae.Code), string(ae.Code), ae.Message, ae.Meta, requestID)
		return
	}

	zlog.Error().Err(err).Str("request_id", requestID).Msg("unhandled error")
	Fail(w, http.StatusInternalServerError, "internal_error", "internal error", nil, requestID)
}

func statusFromCode(code domain.ErrCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidState:
		return http.StatusConflict
	case domain.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
