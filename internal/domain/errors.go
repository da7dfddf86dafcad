package domain

import "errors"

// Ledger error taxonomy. Every failure is detected before any state mutation
// and surfaced with a specific kind so callers can distinguish caller errors
// (ErrInvalidEndTime) from terminal conditions (ErrMarketEnded) from
// already-done operations (ErrMarketAlreadyResolved).
var (
	ErrInvalidEndTime        = errors.New("end time must be in the future")
	ErrEmptyQuestion         = errors.New("question must not be empty")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidSide           = errors.New("side must be yes or no")
	ErrInvalidAccount        = errors.New("invalid account address")
	ErrMarketNotFound        = errors.New("market not found")
	ErrMarketEnded           = errors.New("market has ended")
	ErrMarketNotEnded        = errors.New("market has not ended yet")
	ErrMarketAlreadyResolved = errors.New("market already resolved")
	ErrInsufficientFunds     = errors.New("insufficient funds")

	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock already held")
)
