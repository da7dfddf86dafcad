package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/predictd/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketSelectCols = `id, creator, question, end_time, resolved, outcome,
	yes_shares, no_shares, total_escrow, resolver, created_at, resolved_at`

// Upsert inserts or replaces the read-model snapshot of a market.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, creator, question, end_time, resolved, outcome,
			yes_shares, no_shares, total_escrow, resolver,
			created_at, resolved_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			resolved     = EXCLUDED.resolved,
			outcome      = EXCLUDED.outcome,
			yes_shares   = EXCLUDED.yes_shares,
			no_shares    = EXCLUDED.no_shares,
			total_escrow = EXCLUDED.total_escrow,
			resolver     = EXCLUDED.resolver,
			resolved_at  = EXCLUDED.resolved_at,
			updated_at   = NOW()`

	_, err := s.pool.Exec(ctx, query,
		int64(m.ID), m.Creator, m.Question, m.EndTime, m.Resolved, m.Outcome,
		m.YesShares, m.NoShares, m.TotalEscrow, m.Resolver,
		m.CreatedAt, m.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %d: %w", m.ID, err)
	}
	return nil
}

func scanMarketRow(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var id int64
	err := row.Scan(
		&id, &m.Creator, &m.Question, &m.EndTime, &m.Resolved, &m.Outcome,
		&m.YesShares, &m.NoShares, &m.TotalEscrow, &m.Resolver,
		&m.CreatedAt, &m.ResolvedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.ID = uint64(id)
	return m, nil
}

func scanMarketRows(rows pgx.Rows) ([]domain.Market, error) {
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarketRow(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// GetByID retrieves a single market by its id.
func (s *MarketStore) GetByID(ctx context.Context, id uint64) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE id = $1`, int64(id))

	m, err := scanMarketRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// List returns markets in id order with pagination.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, "", opts)
}

// ListOpen returns unresolved markets in id order with pagination.
func (s *MarketStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, "WHERE NOT resolved", opts)
}

func (s *MarketStore) list(ctx context.Context, where string, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets ` + where + ` ORDER BY id`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	markets, err := scanMarketRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan markets: %w", err)
	}
	return markets, nil
}

// ListResolvedBefore returns markets resolved strictly before the cutoff,
// oldest first.
func (s *MarketStore) ListResolvedBefore(ctx context.Context, before time.Time) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketSelectCols+` FROM markets
		 WHERE resolved AND resolved_at < $1
		 ORDER BY resolved_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved markets: %w", err)
	}
	defer rows.Close()

	markets, err := scanMarketRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan resolved markets: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
