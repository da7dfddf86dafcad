package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/openpredict/predictd/internal/bank"
	"github.com/openpredict/predictd/internal/domain"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	carol = "0x3333333333333333333333333333333333333333"

	unit = int64(1_000_000) // one funding unit in micro-units
)

// fakeClock is a settable clock for deterministic end-time gating.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// eventRecorder collects emitted events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Emit(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofKind(kind domain.EventKind) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	engine *Engine
	bank   *bank.Memory
	clock  *fakeClock
	events *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := bank.NewMemory()
	rec := &eventRecorder{}
	logger := slog.New(slog.DiscardHandler)
	return &fixture{
		engine: NewEngine(b, clock, rec, logger),
		bank:   b,
		clock:  clock,
		events: rec,
	}
}

func (f *fixture) createMarket(t *testing.T) uint64 {
	t.Helper()
	id, err := f.engine.CreateMarket(context.Background(), alice,
		"Will ETH reach $5000 by the end of the year?", f.clock.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	return id
}

func (f *fixture) balance(t *testing.T, account string) int64 {
	t.Helper()
	bal, err := f.bank.Balance(context.Background(), account)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	return bal
}

func TestCreateMarket_AssignsSequentialIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := f.clock.Now().Add(time.Hour)

	for want := uint64(1); want <= 3; want++ {
		id, err := f.engine.CreateMarket(ctx, alice, "Question?", end)
		if err != nil {
			t.Fatalf("CreateMarket failed: %v", err)
		}
		if id != want {
			t.Errorf("Expected market id %d, got %d", want, id)
		}
	}

	created := f.events.ofKind(domain.EventMarketCreated)
	if len(created) != 3 {
		t.Fatalf("Expected 3 creation events, got %d", len(created))
	}
	if created[0].MarketCreated.Creator != alice {
		t.Errorf("Creation event carries wrong creator %s", created[0].MarketCreated.Creator)
	}
}

func TestCreateMarket_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	tests := []struct {
		name     string
		creator  string
		question string
		endTime  time.Time
		wantErr  error
	}{
		{"past end time", alice, "Q?", now.Add(-time.Second), domain.ErrInvalidEndTime},
		{"end time equals now", alice, "Q?", now, domain.ErrInvalidEndTime},
		{"empty question", alice, "", now.Add(time.Hour), domain.ErrEmptyQuestion},
		{"bad creator", "not-an-address", "Q?", now.Add(time.Hour), domain.ErrInvalidAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateMarket(ctx, tt.creator, tt.question, tt.endTime)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuyShares_UpdatesAggregatesAndPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	id := f.createMarket(t)

	if err := f.engine.BuyShares(ctx, id, alice, domain.SideYes, 100*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}
	if err := f.engine.BuyShares(ctx, id, alice, domain.SideYes, 50*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}

	m, err := f.engine.GetMarket(ctx, id)
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if m.YesShares != 150*unit || m.NoShares != 0 {
		t.Errorf("Expected 150/0 shares, got %d/%d", m.YesShares, m.NoShares)
	}
	if m.TotalEscrow != 150*unit {
		t.Errorf("Expected escrow %d, got %d", 150*unit, m.TotalEscrow)
	}

	pos, err := f.engine.GetPosition(ctx, id, alice)
	if err != nil {
		t.Fatalf("GetPosition failed: %v", err)
	}
	if pos.YesShares != 150*unit || pos.NoShares != 0 {
		t.Errorf("Expected position 150/0, got %d/%d", pos.YesShares, pos.NoShares)
	}

	if got := f.balance(t, alice); got != 850*unit {
		t.Errorf("Expected buyer balance %d, got %d", 850*unit, got)
	}
	if got := f.balance(t, EscrowAccount); got != 150*unit {
		t.Errorf("Expected escrow balance %d, got %d", 150*unit, got)
	}
}

func TestBuyShares_MonotonicSum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	f.bank.Mint(bob, 1000*unit)
	id := f.createMarket(t)

	purchases := []struct {
		buyer  string
		side   domain.Side
		amount int64
	}{
		{alice, domain.SideYes, 10 * unit},
		{bob, domain.SideNo, 25 * unit},
		{alice, domain.SideNo, 5 * unit},
		{bob, domain.SideYes, 40 * unit},
	}

	var total, prevYes, prevNo int64
	for _, p := range purchases {
		if err := f.engine.BuyShares(ctx, id, p.buyer, p.side, p.amount); err != nil {
			t.Fatalf("BuyShares failed: %v", err)
		}
		total += p.amount

		m, _ := f.engine.GetMarket(ctx, id)
		if m.YesShares < prevYes || m.NoShares < prevNo {
			t.Errorf("Share totals decreased: %d/%d after %d/%d", m.YesShares, m.NoShares, prevYes, prevNo)
		}
		if m.YesShares+m.NoShares != total {
			t.Errorf("Expected total %d, got %d", total, m.YesShares+m.NoShares)
		}
		prevYes, prevNo = m.YesShares, m.NoShares
	}
}

func TestBuyShares_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 10*unit)
	id := f.createMarket(t)

	tests := []struct {
		name    string
		market  uint64
		buyer   string
		side    domain.Side
		amount  int64
		wantErr error
	}{
		{"unknown market", 99, alice, domain.SideYes, unit, domain.ErrMarketNotFound},
		{"zero amount", id, alice, domain.SideYes, 0, domain.ErrInvalidAmount},
		{"negative amount", id, alice, domain.SideYes, -unit, domain.ErrInvalidAmount},
		{"bad side", id, alice, domain.Side("maybe"), unit, domain.ErrInvalidSide},
		{"bad account", id, "bogus", domain.SideYes, unit, domain.ErrInvalidAccount},
		{"insufficient funds", id, alice, domain.SideYes, 100 * unit, domain.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.engine.BuyShares(ctx, tt.market, tt.buyer, tt.side, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// None of the failed purchases may have touched market state.
	m, _ := f.engine.GetMarket(ctx, id)
	if m.YesShares != 0 || m.NoShares != 0 || m.TotalEscrow != 0 {
		t.Errorf("Failed purchases mutated state: %+v", m)
	}
	if got := f.balance(t, alice); got != 10*unit {
		t.Errorf("Failed purchases moved funds: balance %d", got)
	}
}

func TestBuyShares_TimeGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	id := f.createMarket(t)

	// Exactly at endTime the market is closed.
	f.clock.Advance(24 * time.Hour)
	if err := f.engine.BuyShares(ctx, id, alice, domain.SideYes, unit); !errors.Is(err, domain.ErrMarketEnded) {
		t.Errorf("Expected ErrMarketEnded at endTime, got %v", err)
	}

	f.clock.Advance(time.Second)
	if err := f.engine.BuyShares(ctx, id, alice, domain.SideNo, unit); !errors.Is(err, domain.ErrMarketEnded) {
		t.Errorf("Expected ErrMarketEnded past endTime, got %v", err)
	}
}

func TestResolveMarket_SimpleResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 100*unit)
	f.bank.Mint(bob, 100*unit)
	id := f.createMarket(t)

	if err := f.engine.BuyShares(ctx, id, alice, domain.SideYes, 100*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}
	if err := f.engine.BuyShares(ctx, id, bob, domain.SideNo, 100*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}

	f.clock.Advance(24*time.Hour + time.Second)
	if err := f.engine.ResolveMarket(ctx, id, bob, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	// Alice is the sole yes-holder: she receives the full 200-unit pool.
	if got := f.balance(t, alice); got != 200*unit {
		t.Errorf("Expected winner balance %d, got %d", 200*unit, got)
	}
	if got := f.balance(t, bob); got != 0 {
		t.Errorf("Expected loser balance 0, got %d", got)
	}
	if got := f.balance(t, EscrowAccount); got != 0 {
		t.Errorf("Expected empty escrow, got %d", got)
	}

	m, _ := f.engine.GetMarket(ctx, id)
	if !m.Resolved || !m.Outcome {
		t.Errorf("Expected resolved=true outcome=true, got %+v", m)
	}
	if m.Resolver != bob {
		t.Errorf("Expected resolver %s, got %s", bob, m.Resolver)
	}

	payouts := f.events.ofKind(domain.EventPayoutDistributed)
	if len(payouts) != 1 {
		t.Fatalf("Expected 1 payout event, got %d", len(payouts))
	}
	if payouts[0].PayoutDistributed.Recipient != alice || payouts[0].PayoutDistributed.Amount != 200*unit {
		t.Errorf("Unexpected payout event: %+v", payouts[0].PayoutDistributed)
	}

	resolved := f.events.ofKind(domain.EventMarketResolved)
	if len(resolved) != 1 {
		t.Fatalf("Expected 1 resolution event, got %d", len(resolved))
	}
	if resolved[0].MarketResolved.Resolver != bob || !resolved[0].MarketResolved.Outcome {
		t.Errorf("Unexpected resolution event: %+v", resolved[0].MarketResolved)
	}
}

func TestResolveMarket_ShortEscrowAbortsBeforeStateChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 10*unit)
	id := f.createMarket(t)

	if err := f.engine.BuyShares(ctx, id, alice, domain.SideYes, 10*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}
	f.clock.Advance(25 * time.Hour)

	// Drain escrow behind the engine's back so the payout schedule cannot
	// be funded.
	if err := f.bank.Debit(ctx, EscrowAccount, 10*unit); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}

	err := f.engine.ResolveMarket(ctx, id, bob, true)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	m, _ := f.engine.GetMarket(ctx, id)
	if m.Resolved {
		t.Fatal("Market must stay open after an aborted settlement")
	}
	if got := f.events.ofKind(domain.EventMarketResolved); len(got) != 0 {
		t.Fatalf("Expected no resolution events, got %d", len(got))
	}
	if got := f.events.ofKind(domain.EventPayoutDistributed); len(got) != 0 {
		t.Fatalf("Expected no payout events, got %d", len(got))
	}

	// Refunding escrow makes the retry succeed in full.
	f.bank.Mint(EscrowAccount, 10*unit)
	if err := f.engine.ResolveMarket(ctx, id, bob, true); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if got := f.balance(t, alice); got != 10*unit {
		t.Errorf("Expected winner balance %d, got %d", 10*unit, got)
	}
}

func TestResolveMarket_AnyoneCanResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createMarket(t)
	f.clock.Advance(25 * time.Hour)

	// Carol never participated and is not the creator.
	if err := f.engine.ResolveMarket(ctx, id, carol, false); err != nil {
		t.Fatalf("Non-creator resolution failed: %v", err)
	}

	m, _ := f.engine.GetMarket(ctx, id)
	if !m.Resolved || m.Resolver != carol {
		t.Errorf("Expected carol as resolver, got %+v", m)
	}
}

func TestResolveMarket_Gating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createMarket(t)

	if err := f.engine.ResolveMarket(ctx, 99, alice, true); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("Expected ErrMarketNotFound, got %v", err)
	}
	if err := f.engine.ResolveMarket(ctx, id, alice, true); !errors.Is(err, domain.ErrMarketNotEnded) {
		t.Errorf("Expected ErrMarketNotEnded, got %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	if err := f.engine.ResolveMarket(ctx, id, alice, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	// Second resolution always fails and emits nothing.
	before := len(f.events.ofKind(domain.EventPayoutDistributed)) + len(f.events.ofKind(domain.EventMarketResolved))
	if err := f.engine.ResolveMarket(ctx, id, bob, false); !errors.Is(err, domain.ErrMarketAlreadyResolved) {
		t.Errorf("Expected ErrMarketAlreadyResolved, got %v", err)
	}
	after := len(f.events.ofKind(domain.EventPayoutDistributed)) + len(f.events.ofKind(domain.EventMarketResolved))
	if before != after {
		t.Errorf("Second resolution emitted events: %d -> %d", before, after)
	}

	m, _ := f.engine.GetMarket(ctx, id)
	if m.Outcome != true {
		t.Error("Second resolution changed the outcome")
	}
}

func TestResolveMarket_DegeneratePool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createMarket(t)
	f.clock.Advance(25 * time.Hour)

	if err := f.engine.ResolveMarket(ctx, id, alice, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	if payouts := f.events.ofKind(domain.EventPayoutDistributed); len(payouts) != 0 {
		t.Errorf("Expected no payout events, got %d", len(payouts))
	}
	m, _ := f.engine.GetMarket(ctx, id)
	if !m.Resolved {
		t.Error("Expected resolved=true")
	}
}

func TestResolveMarket_NobodyOnWinningSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(bob, 100*unit)
	id := f.createMarket(t)

	if err := f.engine.BuyShares(ctx, id, bob, domain.SideNo, 100*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}
	f.clock.Advance(25 * time.Hour)

	// Outcome is yes but nobody holds yes shares: pool stays unclaimed.
	if err := f.engine.ResolveMarket(ctx, id, alice, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}
	if payouts := f.events.ofKind(domain.EventPayoutDistributed); len(payouts) != 0 {
		t.Errorf("Expected no payout events, got %d", len(payouts))
	}
	if got := f.balance(t, EscrowAccount); got != 100*unit {
		t.Errorf("Expected pool to stay escrowed, got %d", got)
	}
}

func TestResolveMarket_Conservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	f.bank.Mint(bob, 1000*unit)
	f.bank.Mint(carol, 1000*unit)
	id := f.createMarket(t)

	// Winning side totals that do not evenly divide the pool force rounding.
	buys := []struct {
		buyer  string
		side   domain.Side
		amount int64
	}{
		{alice, domain.SideYes, 7},
		{bob, domain.SideYes, 3},
		{carol, domain.SideNo, 10},
	}
	var pool int64
	for _, b := range buys {
		if err := f.engine.BuyShares(ctx, id, b.buyer, b.side, b.amount); err != nil {
			t.Fatalf("BuyShares failed: %v", err)
		}
		pool += b.amount
	}

	f.clock.Advance(25 * time.Hour)
	if err := f.engine.ResolveMarket(ctx, id, alice, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	var paid int64
	payouts := f.events.ofKind(domain.EventPayoutDistributed)
	for _, ev := range payouts {
		paid += ev.PayoutDistributed.Amount
	}
	// 20*7/10=14, 20*3/10=6: exact division here, remainder zero.
	if paid > pool {
		t.Errorf("Payouts %d exceed pool %d", paid, pool)
	}
	remainder := pool - paid
	if remainder < 0 || remainder >= int64(len(payouts)+1) {
		t.Errorf("Remainder %d outside [0, winners)", remainder)
	}
	if got := f.balance(t, EscrowAccount); got != remainder {
		t.Errorf("Escrow %d does not equal remainder %d", got, remainder)
	}
}

func TestResolveMarket_TruncationFavorsPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	f.bank.Mint(bob, 1000*unit)
	f.bank.Mint(carol, 1000*unit)
	id := f.createMarket(t)

	// Pool 10, winning total 3: 10*1/3=3 truncated per winner, remainder 1.
	for _, buyer := range []string{alice, bob, carol} {
		if err := f.engine.BuyShares(ctx, id, buyer, domain.SideYes, 1); err != nil {
			t.Fatalf("BuyShares failed: %v", err)
		}
	}
	if err := f.engine.BuyShares(ctx, id, carol, domain.SideNo, 7); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	if err := f.engine.ResolveMarket(ctx, id, alice, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	payouts := f.events.ofKind(domain.EventPayoutDistributed)
	if len(payouts) != 3 {
		t.Fatalf("Expected 3 payout events, got %d", len(payouts))
	}
	for _, ev := range payouts {
		if ev.PayoutDistributed.Amount != 3 {
			t.Errorf("Expected truncated payout 3, got %d", ev.PayoutDistributed.Amount)
		}
	}
	if got := f.balance(t, EscrowAccount); got != 1 {
		t.Errorf("Expected remainder 1 in escrow, got %d", got)
	}
}

func TestResolveMarket_BothSidesParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	f.bank.Mint(bob, 1000*unit)
	id := f.createMarket(t)

	// Alice hedges both sides; only her yes position pays out.
	if err := f.engine.BuyShares(ctx, id, alice, domain.SideYes, 50*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}
	if err := f.engine.BuyShares(ctx, id, alice, domain.SideNo, 30*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}
	if err := f.engine.BuyShares(ctx, id, bob, domain.SideYes, 50*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	if err := f.engine.ResolveMarket(ctx, id, bob, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	// Pool 130, yes total 100: alice 130*50/100=65, bob 65.
	if got := f.balance(t, alice); got != 1000*unit-80*unit+65*unit {
		t.Errorf("Unexpected alice balance %d", got)
	}
	if got := f.balance(t, bob); got != 1000*unit-50*unit+65*unit {
		t.Errorf("Unexpected bob balance %d", got)
	}
	if payouts := f.events.ofKind(domain.EventPayoutDistributed); len(payouts) != 2 {
		t.Errorf("Expected 2 payout events, got %d", len(payouts))
	}
}

func TestResolveMarket_PayoutOrderIsFirstPurchaseOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	f.bank.Mint(bob, 1000*unit)
	f.bank.Mint(carol, 1000*unit)
	id := f.createMarket(t)

	// First purchases in order: bob, carol, alice.
	order := []string{bob, carol, alice}
	for _, buyer := range order {
		if err := f.engine.BuyShares(ctx, id, buyer, domain.SideYes, 10*unit); err != nil {
			t.Fatalf("BuyShares failed: %v", err)
		}
	}
	// A later purchase by bob must not change his slot.
	if err := f.engine.BuyShares(ctx, id, bob, domain.SideYes, 10*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	if err := f.engine.ResolveMarket(ctx, id, alice, true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	payouts := f.events.ofKind(domain.EventPayoutDistributed)
	if len(payouts) != 3 {
		t.Fatalf("Expected 3 payout events, got %d", len(payouts))
	}
	for i, want := range order {
		if got := payouts[i].PayoutDistributed.Recipient; got != want {
			t.Errorf("Payout %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestEventSequencePerMarket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bank.Mint(alice, 1000*unit)
	id := f.createMarket(t)
	if err := f.engine.BuyShares(ctx, id, alice, domain.SideYes, unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	for i, ev := range f.events.events {
		if ev.Seq != uint64(i+1) {
			t.Errorf("Event %d has seq %d", i, ev.Seq)
		}
		if err := ev.Validate(); err != nil {
			t.Errorf("Event %d invalid: %v", i, err)
		}
		if ev.ID == "" {
			t.Errorf("Event %d missing id", i)
		}
	}
}

func TestGetPosition_ZeroForNonParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createMarket(t)

	pos, err := f.engine.GetPosition(ctx, id, bob)
	if err != nil {
		t.Fatalf("GetPosition failed: %v", err)
	}
	if !pos.Empty() {
		t.Errorf("Expected empty position, got %+v", pos)
	}

	if _, err := f.engine.GetPosition(ctx, 99, bob); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("Expected ErrMarketNotFound, got %v", err)
	}
}

func TestAccountNormalization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lower := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	norm, err := domain.NormalizeAccount(lower)
	if err != nil {
		t.Fatalf("NormalizeAccount failed: %v", err)
	}
	f.bank.Mint(norm, 100*unit)
	id := f.createMarket(t)

	// Mixed-case input lands on the same position as the checksummed form.
	if err := f.engine.BuyShares(ctx, id, lower, domain.SideYes, 10*unit); err != nil {
		t.Fatalf("BuyShares failed: %v", err)
	}
	pos, err := f.engine.GetPosition(ctx, id, norm)
	if err != nil {
		t.Fatalf("GetPosition failed: %v", err)
	}
	if pos.YesShares != 10*unit {
		t.Errorf("Expected normalized position, got %+v", pos)
	}
}
