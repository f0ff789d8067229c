package domain

import "time"

// GameState exposes read-only game facts to the eligibility pipeline.
// The host game provides the implementation; the SDK never mutates it.
type GameState interface {
	GetPlayerLevel() int
	GetCompletedStages() int
	GetCurrency(code string) int64
	HasPurchased(offerID string) bool
	GetLastShown(offerID string) time.Time
	GetRegion() string
	GetPlayerType() string
	// GetUserSegmentation returns the derived segment mapping (region,
	// player type) used for offer targeting.
	GetUserSegmentation() map[string]string
}
