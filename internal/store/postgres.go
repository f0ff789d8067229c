package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists purchase history in Postgres, for deployments where
// the purchase record is shared with a backend. Schema is managed by the
// migrations under db/migrations (see infra.RunMigrations).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) MarkPurchased(ctx context.Context, offerID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO purchases (offer_id) VALUES ($1) ON CONFLICT (offer_id) DO NOTHING`, offerID)
	if err != nil {
		return fmt.Errorf("mark purchased: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasPurchased(ctx context.Context, offerID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE offer_id = $1)`, offerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has purchased: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListPurchased(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT offer_id FROM purchases ORDER BY purchased_at, offer_id`)
	if err != nil {
		return nil, fmt.Errorf("list purchased: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
