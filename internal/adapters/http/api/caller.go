package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/markscard/internal/domain/identity"
	"github.com/okian/markscard/pkg/logger"
	"github.com/okian/markscard/pkg/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// CallerMiddleware returns a middleware that reads the verified caller from
// header and attaches it to the request context. The header is trusted: it
// must be set by the gateway in front of this service, which strips any
// client-supplied value. Requests without it never reach next.
func CallerMiddleware(header string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			const op = "api.caller"

			raw := r.Header.Get(header)
			if strings.TrimSpace(raw) == "" {
				metrics.RecordUnauthenticated()
				writeError(w, http.StatusUnauthorized, "unauthenticated", NewKind(op, ErrUnauthenticated))
				return
			}

			// The token is opaque; it is passed on verbatim.
			ctx := identity.WithCaller(r.Context(), identity.Identity(raw))
			next(w, r.WithContext(ctx))
		}
	}
}

// RequestIDMiddleware propagates X-Request-ID, generating one when absent,
// and makes it available to the logger through the request context.
func RequestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	}
}
