// Package store persists the player's purchase history. The SDK only
// depends on this narrow read/write contract; backends range from an
// in-memory map to a local SQLite file to a server-side Postgres table.
package store

import "context"

// Store is the purchase-history contract consumed by the request service and
// the host game's state provider.
type Store interface {
	// MarkPurchased records a purchase of the given offer id. Recording an
	// already-purchased id is not an error.
	MarkPurchased(ctx context.Context, offerID string) error
	// HasPurchased reports whether the offer id was ever purchased.
	HasPurchased(ctx context.Context, offerID string) (bool, error)
	// ListPurchased returns all purchased offer ids.
	ListPurchased(ctx context.Context) ([]string, error)
}
