package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/predictd/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. The full typed
// envelope is stored as JSONB alongside the identifying columns so the event
// log can be replayed without speculative parsing.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append stores one ledger event. The (market_id, seq) unique constraint
// rejects duplicate deliveries.
func (s *EventStore) Append(ctx context.Context, ev domain.Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("postgres: append event: %w", err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("postgres: marshal event %s: %w", ev.ID, err)
	}

	const query = `
		INSERT INTO ledger_events (id, market_id, seq, kind, payload, at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		ev.ID, int64(ev.MarketID), int64(ev.Seq), string(ev.Kind), payload, ev.At,
	)
	if err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.ID, err)
	}
	return nil
}

// ListByMarket returns a market's events in sequence order.
func (s *EventStore) ListByMarket(ctx context.Context, marketID uint64) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM ledger_events WHERE market_id = $1 ORDER BY seq`,
		int64(marketID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
