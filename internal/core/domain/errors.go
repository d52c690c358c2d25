package domain

import "errors"

var (
	// ErrNotFound covers unknown accounts and unknown transaction ids.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers bad currencies, non-positive or undersized
	// amounts, unrecognized transaction types and malformed timestamps.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidArgument covers wrong argument shapes, such as a
	// zero-value account reference or an inverted time range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientFunds declines an authorization that exceeds the
	// available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRollbackFailed is returned when a compensating delete fails after
	// a partial write. The ledger may hold residual rows at that point, so
	// callers must treat it as unrecoverable and alert on it.
	ErrRollbackFailed = errors.New("rollback failed")
)
