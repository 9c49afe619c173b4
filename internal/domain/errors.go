package domain

import "errors"

// Failure categories surfaced by the core. Callers branch with errors.Is and
// wrap with fmt.Errorf("%w: ...") to add context.
var (
	// ErrValidation covers bad amounts, non-positive rates, and malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownCurrency is returned for codes missing from the registry.
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrRateUnavailable means no direct, inverse, or bridged rate resolved.
	ErrRateUnavailable = errors.New("rate unavailable")
)
