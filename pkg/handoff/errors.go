package handoff

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying token issuance failures. Callers map these to
// transport status codes; wrap with %w so errors.Is keeps working through
// added context.
var (
	// ErrUnauthenticated means the caller presented no valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidArgument means the request itself was malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrForbidden means the caller is authenticated but not entitled to a
	// token for the requested project.
	ErrForbidden = errors.New("forbidden")

	// ErrConfiguration means the issuer is missing server-side configuration
	// it needs to sign tokens. Never caused by caller input.
	ErrConfiguration = errors.New("issuer misconfigured")

	// ErrUnavailable means a backing store could not answer.
	ErrUnavailable = errors.New("service unavailable")
)

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
