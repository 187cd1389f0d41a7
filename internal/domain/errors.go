package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrRetryBudget   = errors.New("rate limit retry budget exhausted")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadCredential = errors.New("invalid credential")
	ErrAPIStatus     = errors.New("api error status")
	ErrMalformedFill = errors.New("malformed fill")
	ErrEmptyListing  = errors.New("empty market listing")
)
