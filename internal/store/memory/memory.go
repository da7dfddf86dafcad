// Package memory implements the domain store interfaces with in-process maps.
// It backs lite mode and tests; nothing is persisted across restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openpredict/predictd/internal/domain"
)

// MarketStore is an in-memory domain.MarketStore.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[uint64]domain.Market
}

// NewMarketStore creates an empty in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[uint64]domain.Market)}
}

// Upsert inserts or replaces a market snapshot.
func (s *MarketStore) Upsert(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = m
	return nil
}

// GetByID returns the market with the given id.
func (s *MarketStore) GetByID(_ context.Context, id uint64) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return m, nil
}

// List returns all markets in id order, paginated.
func (s *MarketStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.sorted(), opts), nil
}

// ListOpen returns unresolved markets in id order, paginated.
func (s *MarketStore) ListOpen(_ context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []domain.Market
	for _, m := range s.sorted() {
		if !m.Resolved {
			open = append(open, m)
		}
	}
	return paginate(open, opts), nil
}

// ListResolvedBefore returns markets resolved strictly before the cutoff.
func (s *MarketStore) ListResolvedBefore(_ context.Context, before time.Time) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Market
	for _, m := range s.sorted() {
		if m.Resolved && m.ResolvedAt != nil && m.ResolvedAt.Before(before) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Count returns the number of stored markets.
func (s *MarketStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}

func (s *MarketStore) sorted() []domain.Market {
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate(markets []domain.Market, opts domain.ListOpts) []domain.Market {
	if opts.Offset > 0 {
		if opts.Offset >= len(markets) {
			return nil
		}
		markets = markets[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(markets) {
		markets = markets[:opts.Limit]
	}
	return markets
}

// positionKey identifies a position by market and account.
type positionKey struct {
	marketID uint64
	account  string
}

// PositionStore is an in-memory domain.PositionStore.
type PositionStore struct {
	mu        sync.RWMutex
	positions map[positionKey]domain.Position
	order     map[uint64][]string // account first-seen order per market
}

// NewPositionStore creates an empty in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		positions: make(map[positionKey]domain.Position),
		order:     make(map[uint64][]string),
	}
}

// Upsert inserts or replaces a position.
func (s *PositionStore) Upsert(_ context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := positionKey{p.MarketID, p.Account}
	if _, ok := s.positions[key]; !ok {
		s.order[p.MarketID] = append(s.order[p.MarketID], p.Account)
	}
	s.positions[key] = p
	return nil
}

// Get returns the position for a market and account.
func (s *PositionStore) Get(_ context.Context, marketID uint64, account string) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionKey{marketID, account}]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

// ListByMarket returns all positions for a market in first-upsert order.
func (s *PositionStore) ListByMarket(_ context.Context, marketID uint64) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Position
	for _, account := range s.order[marketID] {
		out = append(out, s.positions[positionKey{marketID, account}])
	}
	return out, nil
}

// EventStore is an in-memory domain.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events map[uint64][]domain.Event
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[uint64][]domain.Event)}
}

// Append adds an event to its market's log.
func (s *EventStore) Append(_ context.Context, ev domain.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.MarketID] = append(s.events[ev.MarketID], ev)
	return nil
}

// ListByMarket returns a market's events in append order.
func (s *EventStore) ListByMarket(_ context.Context, marketID uint64) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, len(s.events[marketID]))
	copy(out, s.events[marketID])
	return out, nil
}

// Compile-time interface checks.
var (
	_ domain.MarketStore   = (*MarketStore)(nil)
	_ domain.PositionStore = (*PositionStore)(nil)
	_ domain.EventStore    = (*EventStore)(nil)
)
