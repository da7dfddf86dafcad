package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/openpredict/predictd/internal/domain"
)

const faucetAccount = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func TestFaucetMintsOnFirstTouch(t *testing.T) {
	f := NewFaucet(NewMemory(), 1000)
	ctx := context.Background()

	bal, err := f.Balance(ctx, faucetAccount)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 1000 {
		t.Fatalf("balance = %d, want 1000", bal)
	}

	// A second touch must not mint again.
	if err := f.Debit(ctx, faucetAccount, 400); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	bal, _ = f.Balance(ctx, faucetAccount)
	if bal != 600 {
		t.Fatalf("balance = %d, want 600", bal)
	}
}

func TestFaucetGrantIsNotBottomless(t *testing.T) {
	f := NewFaucet(NewMemory(), 1000)

	err := f.Debit(context.Background(), faucetAccount, 5000)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestFaucetDisabledIsPassThrough(t *testing.T) {
	f := NewFaucet(NewMemory(), 0)
	ctx := context.Background()

	bal, err := f.Balance(ctx, faucetAccount)
	if err != nil || bal != 0 {
		t.Fatalf("balance = %d, err = %v", bal, err)
	}
	if err := f.Debit(ctx, faucetAccount, 1); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestFaucetCreditDoesNotMint(t *testing.T) {
	f := NewFaucet(NewMemory(), 1000)
	ctx := context.Background()

	const winner = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	if err := f.Credit(ctx, winner, 250); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	// First explicit touch after the credit still mints on top.
	bal, _ := f.Balance(ctx, winner)
	if bal != 1250 {
		t.Fatalf("balance = %d, want 1250", bal)
	}
}
