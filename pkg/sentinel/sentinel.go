package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: entity exists in a state that rejects the mutation
// - ErrInvalidState: entity in wrong state for requested transition
// - ErrExhausted: no candidate resource left to satisfy the request
// - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrExhausted    = errors.New("exhausted")
	ErrUnavailable  = errors.New("unavailable")
)
