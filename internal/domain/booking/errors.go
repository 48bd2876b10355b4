package booking

import (
	"errors"
	"fmt"
)

// The engine distinguishes error kinds so callers can branch: validation
// failures are surfaced verbatim, conflicts tell the client to refresh
// availability, and anything else is an internal failure.
var (
	// ErrConflict means the requested time is occupied at capacity, whether
	// caught by the overlap pre-check or by the storage-level gate when two
	// requests race.
	ErrConflict = errors.New("slot is no longer available")

	// ErrNotFound covers unknown reference codes, appointment ids, centers
	// and service types.
	ErrNotFound = errors.New("not found")

	// ErrReferenceExhausted is returned when reference code generation keeps
	// colliding past the retry budget. Rare but handled; not a panic.
	ErrReferenceExhausted = errors.New("could not generate a unique reference code")

	// ErrDuplicateReference is returned by the storage layer when an insert
	// loses a reference-code uniqueness race; the caller regenerates and
	// retries.
	ErrDuplicateReference = errors.New("reference code already exists")
)

// ValidationError is a user-facing rejection of a booking request: malformed
// input, time in the past, closed day, blackout date, outside working hours.
// Never retried automatically.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
