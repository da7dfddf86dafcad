package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/predictd/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Upsert inserts or replaces a participant's position snapshot. The
// first_seen sequence assigned on first insert preserves first-purchase
// order for ListByMarket.
func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (market_id, account, yes_shares, no_shares, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (market_id, account) DO UPDATE SET
			yes_shares = EXCLUDED.yes_shares,
			no_shares  = EXCLUDED.no_shares,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		int64(p.MarketID), p.Account, p.YesShares, p.NoShares, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %d/%s: %w", p.MarketID, p.Account, err)
	}
	return nil
}

// Get retrieves a single position by market id and account.
func (s *PositionStore) Get(ctx context.Context, marketID uint64, account string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT market_id, account, yes_shares, no_shares, updated_at
		 FROM positions WHERE market_id = $1 AND account = $2`,
		int64(marketID), account)

	var p domain.Position
	var id int64
	err := row.Scan(&id, &p.Account, &p.YesShares, &p.NoShares, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %d/%s: %w", marketID, account, err)
	}
	p.MarketID = uint64(id)
	return p, nil
}

// ListByMarket returns all positions for a market in first-purchase order.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID uint64) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, account, yes_shares, no_shares, updated_at
		 FROM positions WHERE market_id = $1
		 ORDER BY first_seen`, int64(marketID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var id int64
		if err := rows.Scan(&id, &p.Account, &p.YesShares, &p.NoShares, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		p.MarketID = uint64(id)
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
