package model

import "errors"

var (
	// ErrInvalidInput marks malformed series, non-positive prices or day counts,
	// and rates requested over a zero investment.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration marks configuration rejected at load or construction time.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstream marks a failed fetch from the quote provider.
	ErrUpstream = errors.New("upstream failure")
)
