package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the attestation client,
// and the treasury client return these (optionally wrapped) so services can
// translate them into domain errors with the right rejection reason.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a record for the key already exists (replay guard)
// - ErrInvalidState: entity in wrong status for requested operation
// - ErrInsufficientFunds: token transfer refused for lack of balance
// - ErrUnavailable: external service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnavailable       = errors.New("unavailable")
)
