package middleware

import (
	"net/http"

	apperrors "labbook/pkg/errors"
)

const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// MaxRequestSize caps the request body at limit bytes. Reads past the cap fail,
// which surfaces as an invalid request body in the handlers.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				w.Header().Set("Connection", "close")
				_ = apperrors.WriteError(w, apperrors.New(
					CodePayloadTooLarge,
					"Request body is too large",
					http.StatusRequestEntityTooLarge,
				))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
