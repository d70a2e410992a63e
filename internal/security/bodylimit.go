package security

import (
	"net/http"

	"github.com/clovershop/backoffice/internal/common"
)

// BodyLimit caps request payload size. Requests that declare an oversized
// Content-Length are refused before any read; streamed bodies are cut off
// at the limit by http.MaxBytesReader, so a handler reading past it fails
// instead of buffering without bound.
type BodyLimit struct {
	Max int64
}

func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds limit", map[string]any{"max_bytes": b.Max})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
