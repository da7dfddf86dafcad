package domain

import "context"

// Bank is the funding/escrow transfer mechanism. The ledger pulls funds from
// a buyer into escrow during a purchase and pushes payouts out of escrow at
// resolution. A Debit failure is a hard abort of the whole operation; the
// ledger never mutates state on a failed transfer.
//
// Settlement relies on two properties of the implementation: Credit succeeds
// for any positive amount to a valid account, and Debit fails only when the
// balance is insufficient. An implementation that can fail in other ways
// (network partitions, remote ledgers) must not back the engine directly.
type Bank interface {
	// Debit removes amount micro-units from account, returning
	// ErrInsufficientFunds if the balance is too low.
	Debit(ctx context.Context, account string, amount int64) error
	// Credit adds amount micro-units to account.
	Credit(ctx context.Context, account string, amount int64) error
	// Balance returns the current balance of account.
	Balance(ctx context.Context, account string) (int64, error)
}
