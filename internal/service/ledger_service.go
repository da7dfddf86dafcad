package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/ledger"
)

// Ledger is the write-side surface of the ledger engine.
type Ledger interface {
	CreateMarket(ctx context.Context, creator, question string, endTime time.Time) (uint64, error)
	BuyShares(ctx context.Context, marketID uint64, buyer string, side domain.Side, amount int64) error
	ResolveMarket(ctx context.Context, marketID uint64, resolver string, outcome bool) error
}

// LedgerService wraps the engine's write operations with request logging.
// Validation lives in the engine; this layer only translates and observes.
type LedgerService struct {
	ledger Ledger
	logger *slog.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(ledger Ledger, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		ledger: ledger,
		logger: logger.With(slog.String("component", "ledger_service")),
	}
}

// CreateMarket opens a new market and returns its id.
func (s *LedgerService) CreateMarket(ctx context.Context, creator, question string, endTime time.Time) (uint64, error) {
	id, err := s.ledger.CreateMarket(ctx, creator, question, endTime)
	if err != nil {
		s.logger.WarnContext(ctx, "create market rejected",
			slog.String("creator", creator),
			slog.String("error", err.Error()),
		)
		return 0, err
	}

	s.logger.InfoContext(ctx, "market created",
		slog.Uint64("market_id", id),
		slog.String("creator", creator),
		slog.Time("end_time", endTime),
	)
	return id, nil
}

// BuyShares purchases shares on one side of a market.
func (s *LedgerService) BuyShares(ctx context.Context, marketID uint64, buyer string, side domain.Side, amount int64) error {
	if err := s.ledger.BuyShares(ctx, marketID, buyer, side, amount); err != nil {
		s.logger.WarnContext(ctx, "buy rejected",
			slog.Uint64("market_id", marketID),
			slog.String("buyer", buyer),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.InfoContext(ctx, "shares purchased",
		slog.Uint64("market_id", marketID),
		slog.String("buyer", buyer),
		slog.String("side", string(side)),
		slog.Int64("amount", amount),
	)
	return nil
}

// ResolveMarket declares a market's outcome and triggers payouts.
func (s *LedgerService) ResolveMarket(ctx context.Context, marketID uint64, resolver string, outcome bool) error {
	if err := s.ledger.ResolveMarket(ctx, marketID, resolver, outcome); err != nil {
		s.logger.WarnContext(ctx, "resolve rejected",
			slog.Uint64("market_id", marketID),
			slog.String("resolver", resolver),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.InfoContext(ctx, "market resolved",
		slog.Uint64("market_id", marketID),
		slog.String("resolver", resolver),
		slog.Bool("outcome", outcome),
	)
	return nil
}

// EstimatePayout projects the payout an additional purchase would receive if
// its side wins, given current share totals.
func (s *LedgerService) EstimatePayout(sideTotal, otherSideTotal, amount int64) int64 {
	return ledger.EstimatePayout(sideTotal, otherSideTotal, amount)
}

// isNotFound reports whether err is any of the ledger's missing-entity
// sentinels.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrMarketNotFound)
}
