package domain

import "errors"

// Error taxonomy shared across stages. Adapters wrap these with context and
// the HTTP layer maps them to status codes via errors.Is.
var (
	// ErrInvalidInput marks missing or malformed request fields (caller error).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed marks an entity that exists but is not in the
	// required state or below the required threshold.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrUpstreamFailure marks a failed remote stage or external call.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrStorageFailure marks a persistence layer error.
	ErrStorageFailure = errors.New("storage failure")
)
