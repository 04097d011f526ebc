package types

import "errors"

var (
	// ErrMalformedInput is returned when a request fails validation before touching storage
	ErrMalformedInput = errors.New("malformed input")

	// ErrInternal (for unhandled exceptions)
	ErrInternal = errors.New("internal error")

	// ErrRateLimited is returned when a client exceeded its per-endpoint request budget
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBlocked is returned when a client address is temporarily blocked by the access gate
	ErrBlocked = errors.New("address temporarily blocked")

	// ErrNotFound hides disallowed or unknown endpoints behind a single generic answer
	ErrNotFound = errors.New("not found")

	// ErrStorageExhausted is returned when an envelope would exceed a configured capacity limit
	ErrStorageExhausted = errors.New("storage exhausted")
)
