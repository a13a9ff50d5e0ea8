package http

import (
	"errors"
	"net"
	"net/http"

	"finwell/internal/core"
	"finwell/internal/log"
)

// clientIP returns the host part of RemoteAddr, which chi's RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeServiceError maps domain errors to status codes. Anything unknown
// is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationErrorResponse(verr).Write(w)
	case errors.Is(err, core.ErrMalformedMonth):
		BadRequestError(core.ErrMalformedMonth.Error()).Write(w)
	case errors.Is(err, errMalformedRequest):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFound().Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.NewFields().
			WithError(err).
			WithErrorType(log.ErrorTypeDatabase).
			WithOperation(op).
			ToSlice()...)
		InternalServerError().Write(w)
	}
}
