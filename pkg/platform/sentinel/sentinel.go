package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and external-service
// clients return these (optionally wrapped) so services can translate them
// into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: unique constraint violated (enrollment id, login identifier)
// - ErrRateLimited: upstream service rejected the call for rate reasons
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("unavailable")
)
