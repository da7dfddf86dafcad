package bank

import (
	"context"
	"sync"

	"github.com/openpredict/predictd/internal/domain"
)

// Faucet wraps a Bank and mints a fixed grant to each account the first time
// it is seen. It makes a fresh deployment immediately tradeable without an
// out-of-band funding step; a purchase larger than the grant still fails with
// ErrInsufficientFunds.
type Faucet struct {
	inner  *Memory
	amount int64

	mu   sync.Mutex
	seen map[string]bool
}

// NewFaucet wraps inner with a first-touch grant of amount per account.
// A non-positive amount disables minting, making the wrapper a pass-through.
func NewFaucet(inner *Memory, amount int64) *Faucet {
	return &Faucet{
		inner:  inner,
		amount: amount,
		seen:   make(map[string]bool),
	}
}

// ensureFunded mints the grant on the first sighting of account.
func (f *Faucet) ensureFunded(account string) {
	if f.amount <= 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen[account] {
		return
	}
	f.seen[account] = true
	f.inner.Mint(account, f.amount)
}

// Debit funds the account on first touch, then delegates to the inner bank.
func (f *Faucet) Debit(ctx context.Context, account string, amount int64) error {
	f.ensureFunded(account)
	return f.inner.Debit(ctx, account, amount)
}

// Credit delegates to the inner bank. Credits do not count as a first touch;
// an account that only ever receives payouts keeps exactly what it was paid.
func (f *Faucet) Credit(ctx context.Context, account string, amount int64) error {
	return f.inner.Credit(ctx, account, amount)
}

// Balance funds the account on first touch, then reads the inner balance.
func (f *Faucet) Balance(ctx context.Context, account string) (int64, error) {
	f.ensureFunded(account)
	return f.inner.Balance(ctx, account)
}

// Compile-time interface check.
var _ domain.Bank = (*Faucet)(nil)
