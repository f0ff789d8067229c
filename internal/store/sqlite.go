package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists purchase history in a local SQLite file: the SDK's
// on-device storage between game launches.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS purchases (
	offer_id     TEXT PRIMARY KEY,
	purchased_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// OpenSQLite opens (creating if needed) the purchase database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create purchases table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) MarkPurchased(ctx context.Context, offerID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purchases (offer_id) VALUES (?) ON CONFLICT (offer_id) DO NOTHING`, offerID)
	if err != nil {
		return fmt.Errorf("mark purchased: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HasPurchased(ctx context.Context, offerID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE offer_id = ?)`, offerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has purchased: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) ListPurchased(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
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
