// Package sentinel holds the facts custody stores report about their records.
//
// Stores return these, usually wrapped with the key involved, and services
// translate them into pkg/domain-errors codes:
//
//   - ErrNotFound: no account, entry, operation or journal row for the key
//   - ErrConflict: the key is already taken (tx id, movement ref, idempotency key)
//   - ErrInvalidState: the record cannot take the change, e.g. a debit below zero
//   - ErrUnavailable: the backing store did not answer; callers may retry
//
// Input validation never uses these.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
