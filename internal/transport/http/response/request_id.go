package response

import "net/http"

// RequestIDFromRequest extracts the request id the middleware echoed into the
// response headers; same key both directions.
func RequestIDFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Request-Id"); v != "" {
		return v
	}
	return r.Header.Get("X-Request-ID")
}
