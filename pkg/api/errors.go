package api

import (
	"errors"
	"net/http"

	"github.com/fieldatlas/console/pkg/handoff"
	"github.com/fieldatlas/console/pkg/httputil"
)

// writeIssuanceError maps token issuance failures to HTTP status codes.
// Internal detail stays out of responses for the 5xx classes.
func writeIssuanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, handoff.ErrUnauthenticated):
		httputil.WriteUnauthorized(w, "authentication required")
	case errors.Is(err, handoff.ErrInvalidArgument):
		httputil.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, handoff.ErrForbidden):
		httputil.WriteForbidden(w, "not a member of this project")
	case errors.Is(err, handoff.ErrConfiguration):
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "service misconfigured")
	case errors.Is(err, handoff.ErrUnavailable):
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
	default:
		httputil.WriteInternalError(w, errors.New("internal server error"))
	}
}
