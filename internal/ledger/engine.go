// Package ledger implements the authoritative prediction-market ledger: per-
// market share accounting, escrow custody, and proportional payout settlement.
// All mutating operations are serialized through a single mutex so each one
// either fully applies or fully fails with no partial effect, mirroring the
// sequential transaction model of the chain this service replaces.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openpredict/predictd/internal/domain"
)

// EventSink receives every ledger event in emission order. Sinks must not
// block for long: they are called with the engine lock held so that the event
// order observed downstream matches the ledger's serialization order.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event domain.Event)

// Emit implements EventSink.
func (f EventSinkFunc) Emit(ctx context.Context, event domain.Event) { f(ctx, event) }

// marketState is the engine's internal per-market record: the market itself,
// every participant position, and the first-purchase order used to enumerate
// winners deterministically at resolution.
type marketState struct {
	market    domain.Market
	positions map[string]*domain.Position
	order     []string // accounts in first-purchase order
	seq       uint64   // per-market event sequence
}

// Engine owns all market state and the two core operations, BuyShares and
// ResolveMarket, plus market creation and read accessors. Escrowed funds are
// held in the bank under the engine's escrow account; only engine code moves
// them, and every debit/credit is paired with the state mutation that
// validated it.
type Engine struct {
	mu      sync.Mutex
	markets map[uint64]*marketState
	nextID  uint64

	bank   domain.Bank
	clock  domain.Clock
	sink   EventSink
	escrow string
	logger *slog.Logger
}

// EscrowAccount is the bank account under which the engine holds all market
// escrow.
const EscrowAccount = "0x0000000000000000000000000000000000000E5c"

// NewEngine creates an Engine with the given funding bank, clock, and event
// sink. A nil sink discards events.
func NewEngine(bank domain.Bank, clock domain.Clock, sink EventSink, logger *slog.Logger) *Engine {
	if sink == nil {
		sink = EventSinkFunc(func(context.Context, domain.Event) {})
	}
	return &Engine{
		markets: make(map[uint64]*marketState),
		nextID:  1,
		bank:    bank,
		clock:   clock,
		sink:    sink,
		escrow:  EscrowAccount,
		logger:  logger.With(slog.String("component", "ledger")),
	}
}

// WithEscrowAccount overrides the default escrow account. The account must
// already be normalized; call before any market activity.
func (e *Engine) WithEscrowAccount(account string) *Engine {
	e.escrow = account
	return e
}

// CreateMarket allocates the next sequential market id and stores a new open
// market. The question must be non-empty and endTime strictly in the future.
func (e *Engine) CreateMarket(ctx context.Context, creator, question string, endTime time.Time) (uint64, error) {
	creator, err := domain.NormalizeAccount(creator)
	if err != nil {
		return 0, err
	}
	if question == "" {
		return 0, domain.ErrEmptyQuestion
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if !endTime.After(now) {
		return 0, domain.ErrInvalidEndTime
	}

	id := e.nextID
	e.nextID++

	ms := &marketState{
		market: domain.Market{
			ID:        id,
			Creator:   creator,
			Question:  question,
			EndTime:   endTime,
			CreatedAt: now,
		},
		positions: make(map[string]*domain.Position),
	}
	e.markets[id] = ms

	e.emit(ctx, ms, domain.EventMarketCreated, domain.Event{
		MarketCreated: &domain.MarketCreated{
			Creator:  creator,
			Question: question,
			EndTime:  endTime,
		},
	})

	e.logger.InfoContext(ctx, "market created",
		slog.Uint64("market_id", id),
		slog.String("creator", creator),
		slog.Time("end_time", endTime),
	)

	return id, nil
}

// BuyShares pulls amount micro-units of funding from buyer into escrow and
// credits the same amount of shares on the chosen side, both in the market
// aggregate and in the buyer's position. Purchases are strictly additive and
// rejected once the market has ended or resolved. The bank debit happens
// before any state mutation; a transfer failure aborts the whole operation.
func (e *Engine) BuyShares(ctx context.Context, marketID uint64, buyer string, side domain.Side, amount int64) error {
	buyer, err := domain.NormalizeAccount(buyer)
	if err != nil {
		return err
	}
	if !side.Valid() {
		return domain.ErrInvalidSide
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ms, ok := e.markets[marketID]
	if !ok {
		return domain.ErrMarketNotFound
	}
	if !ms.market.Open(e.clock.Now()) {
		return domain.ErrMarketEnded
	}

	if err := e.bank.Debit(ctx, buyer, amount); err != nil {
		return fmt.Errorf("ledger: escrow funding for market %d: %w", marketID, err)
	}
	if err := e.bank.Credit(ctx, e.escrow, amount); err != nil {
		// Undo the debit so the failed operation leaves no trace.
		_ = e.bank.Credit(ctx, buyer, amount)
		return fmt.Errorf("ledger: escrow credit for market %d: %w", marketID, err)
	}

	pos, ok := ms.positions[buyer]
	if !ok {
		pos = &domain.Position{MarketID: marketID, Account: buyer}
		ms.positions[buyer] = pos
		ms.order = append(ms.order, buyer)
	}

	if side == domain.SideYes {
		ms.market.YesShares += amount
		pos.YesShares += amount
	} else {
		ms.market.NoShares += amount
		pos.NoShares += amount
	}
	ms.market.TotalEscrow += amount
	pos.UpdatedAt = e.clock.Now()

	e.emit(ctx, ms, domain.EventSharesPurchased, domain.Event{
		SharesPurchased: &domain.SharesPurchased{
			Buyer:  buyer,
			Side:   side,
			Amount: amount,
		},
	})

	e.logger.InfoContext(ctx, "shares purchased",
		slog.Uint64("market_id", marketID),
		slog.String("buyer", buyer),
		slog.String("side", string(side)),
		slog.Int64("amount", amount),
	)

	return nil
}

// payoutEntry is one leg of a settlement schedule.
type payoutEntry struct {
	account string
	amount  int64
}

// ResolveMarket declares the market's outcome and distributes its escrow
// proportionally to winning-side participants. Resolution is permitted for
// any caller once the end time has passed; the unrestricted resolver set is a
// deliberate trust-minimization tradeoff, not an access-control oversight.
//
// Each winner receives pool * winningShares / winningTotal with truncating
// division: the remainder stays in escrow, never overpaid. If nobody holds
// shares on the winning side the pool is left unclaimed and resolution still
// succeeds. The full payout schedule is computed and checked against the
// escrow balance before any state changes, so a funding shortfall aborts
// with the market still open and resolution can be retried.
func (e *Engine) ResolveMarket(ctx context.Context, marketID uint64, resolver string, outcome bool) error {
	resolver, err := domain.NormalizeAccount(resolver)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ms, ok := e.markets[marketID]
	if !ok {
		return domain.ErrMarketNotFound
	}
	if ms.market.Resolved {
		return domain.ErrMarketAlreadyResolved
	}
	now := e.clock.Now()
	if now.Before(ms.market.EndTime) {
		return domain.ErrMarketNotEnded
	}

	winningSide := domain.SideNo
	if outcome {
		winningSide = domain.SideYes
	}
	pool := ms.market.TotalEscrow
	winningTotal := ms.market.SharesOn(winningSide)

	// Winners are enumerated in first-purchase order so payout events replay
	// deterministically.
	var schedule []payoutEntry
	var totalPayout int64
	if winningTotal > 0 {
		for _, account := range ms.order {
			shares := ms.positions[account].SharesOn(winningSide)
			if shares == 0 {
				continue
			}
			payout := proportionalPayout(pool, shares, winningTotal)
			if payout == 0 {
				continue
			}
			schedule = append(schedule, payoutEntry{account: account, amount: payout})
			totalPayout += payout
		}
	}
	if totalPayout > 0 {
		bal, err := e.bank.Balance(ctx, e.escrow)
		if err != nil {
			return fmt.Errorf("ledger: escrow balance for market %d: %w", marketID, err)
		}
		if bal < totalPayout {
			return fmt.Errorf("ledger: escrow %d short of payout total %d for market %d: %w",
				bal, totalPayout, marketID, domain.ErrInsufficientFunds)
		}
	}

	ms.market.Resolved = true
	ms.market.Outcome = outcome
	ms.market.Resolver = resolver
	resolvedAt := now
	ms.market.ResolvedAt = &resolvedAt

	e.emit(ctx, ms, domain.EventMarketResolved, domain.Event{
		MarketResolved: &domain.MarketResolved{
			Outcome:  outcome,
			Resolver: resolver,
		},
	})

	for _, p := range schedule {
		// Transfer failures past the balance check mean the bank broke its
		// contract; surface them rather than guessing at recovery.
		if err := e.bank.Debit(ctx, e.escrow, p.amount); err != nil {
			return fmt.Errorf("ledger: escrow payout for market %d: %w", marketID, err)
		}
		if err := e.bank.Credit(ctx, p.account, p.amount); err != nil {
			return fmt.Errorf("ledger: payout credit for market %d: %w", marketID, err)
		}
		ms.market.TotalEscrow -= p.amount

		e.emit(ctx, ms, domain.EventPayoutDistributed, domain.Event{
			PayoutDistributed: &domain.PayoutDistributed{
				Recipient: p.account,
				Amount:    p.amount,
			},
		})
	}

	e.logger.InfoContext(ctx, "market resolved",
		slog.Uint64("market_id", marketID),
		slog.Bool("outcome", outcome),
		slog.String("resolver", resolver),
		slog.Int64("unclaimed_escrow", ms.market.TotalEscrow),
	)

	return nil
}

// proportionalPayout computes pool * shares / winningTotal with big-int
// intermediates so the product cannot overflow int64, truncating toward zero
// in favour of the pool.
func proportionalPayout(pool, shares, winningTotal int64) int64 {
	p := new(big.Int).Mul(big.NewInt(pool), big.NewInt(shares))
	p.Quo(p, big.NewInt(winningTotal))
	return p.Int64()
}

// GetMarket returns a snapshot of the market with the given id.
func (e *Engine) GetMarket(_ context.Context, marketID uint64) (domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ms, ok := e.markets[marketID]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return ms.market, nil
}

// GetPosition returns the participant's share balances for a market. A
// participant with no purchases has a zero position, not an error.
func (e *Engine) GetPosition(_ context.Context, marketID uint64, account string) (domain.Position, error) {
	account, err := domain.NormalizeAccount(account)
	if err != nil {
		return domain.Position{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ms, ok := e.markets[marketID]
	if !ok {
		return domain.Position{}, domain.ErrMarketNotFound
	}
	if pos, ok := ms.positions[account]; ok {
		return *pos, nil
	}
	return domain.Position{MarketID: marketID, Account: account}, nil
}

// ListMarkets returns snapshots of all markets in id order.
func (e *Engine) ListMarkets(_ context.Context) []domain.Market {
	e.mu.Lock()
	defer e.mu.Unlock()

	markets := make([]domain.Market, 0, len(e.markets))
	for id := uint64(1); id < e.nextID; id++ {
		if ms, ok := e.markets[id]; ok {
			markets = append(markets, ms.market)
		}
	}
	return markets
}

// emit stamps and dispatches an event for the given market. Called with the
// engine lock held.
func (e *Engine) emit(ctx context.Context, ms *marketState, kind domain.EventKind, ev domain.Event) {
	ms.seq++
	ev.ID = uuid.NewString()
	ev.Kind = kind
	ev.MarketID = ms.market.ID
	ev.Seq = ms.seq
	ev.At = e.clock.Now()
	e.sink.Emit(ctx, ev)
}
