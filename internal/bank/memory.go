// Package bank provides funding/escrow balance implementations of the
// domain.Bank interface.
package bank

import (
	"context"
	"fmt"
	"sync"

	"github.com/openpredict/predictd/internal/domain"
)

// Memory is an in-process Bank keeping balances in a map. It backs lite mode
// and tests; balances are not persisted across restarts.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemory creates an empty in-memory bank.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int64)}
}

// Mint credits amount to account out of thin air. Used for seeding balances
// in lite mode and tests.
func (b *Memory) Mint(account string, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
}

// Debit removes amount from account, failing with ErrInsufficientFunds when
// the balance is too low. Negative and zero amounts are rejected.
func (b *Memory) Debit(_ context.Context, account string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[account] < amount {
		return fmt.Errorf("bank: debit %d from %s: %w", amount, account, domain.ErrInsufficientFunds)
	}
	b.balances[account] -= amount
	return nil
}

// Credit adds amount to account.
func (b *Memory) Credit(_ context.Context, account string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[account] += amount
	return nil
}

// Balance returns the current balance of account.
func (b *Memory) Balance(_ context.Context, account string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account], nil
}

// Compile-time interface check.
var _ domain.Bank = (*Memory)(nil)
