// Package service contains the read and write orchestration between the HTTP
// layer, the ledger engine and the read model.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openpredict/predictd/internal/domain"
)

// MarketService serves read queries from the read model, preferring the
// cache and falling back to the store.
type MarketService struct {
	markets   domain.MarketStore
	positions domain.PositionStore
	events    domain.EventStore
	cache     domain.MarketCache
	logger    *slog.Logger
}

// NewMarketService creates a MarketService. Cache may be nil, in which case
// every read goes straight to the store.
func NewMarketService(
	markets domain.MarketStore,
	positions domain.PositionStore,
	events domain.EventStore,
	cache domain.MarketCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:   markets,
		positions: positions,
		events:    events,
		cache:     cache,
		logger:    logger,
	}
}

// GetMarket retrieves a market by id, checking the cache first and falling
// back to the persistent store on a miss.
func (s *MarketService) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %d: %w", id, err)
	}

	// Back-fill the cache; log but do not fail on cache write errors.
	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.Uint64("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return m, nil
}

// ListMarkets returns markets in id order, optionally restricted to
// unresolved ones.
func (s *MarketService) ListMarkets(ctx context.Context, openOnly bool, opts domain.ListOpts) ([]domain.Market, error) {
	var (
		markets []domain.Market
		err     error
	)
	if openOnly {
		markets, err = s.markets.ListOpen(ctx, opts)
	} else {
		markets, err = s.markets.List(ctx, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("market_service: list markets: %w", err)
	}
	return markets, nil
}

// GetPosition returns an account's position in a market. Accounts that never
// traded get a zero position rather than an error.
func (s *MarketService) GetPosition(ctx context.Context, marketID uint64, account string) (domain.Position, error) {
	normalized, err := domain.NormalizeAccount(account)
	if err != nil {
		return domain.Position{}, err
	}

	// The market must exist even when the position does not.
	if _, err := s.GetMarket(ctx, marketID); err != nil {
		return domain.Position{}, err
	}

	pos, err := s.positions.Get(ctx, marketID, normalized)
	if err != nil {
		if isNotFound(err) {
			return domain.Position{MarketID: marketID, Account: normalized}, nil
		}
		return domain.Position{}, fmt.Errorf("market_service: get position %d/%s: %w", marketID, normalized, err)
	}
	return pos, nil
}

// ListEvents returns a market's event history in sequence order.
func (s *MarketService) ListEvents(ctx context.Context, marketID uint64) ([]domain.Event, error) {
	if _, err := s.GetMarket(ctx, marketID); err != nil {
		return nil, err
	}

	events, err := s.events.ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("market_service: list events %d: %w", marketID, err)
	}
	return events, nil
}
