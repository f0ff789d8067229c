package domain

import "time"

// Trigger keys shared between gameplay events and offer definitions.
const (
	TriggerSessionStart  = "SESSION_START"
	TriggerSessionUpdate = "SESSION_UPDATE"
	TriggerLevelComplete = "LEVEL_COMPLETE"
	TriggerStageComplete = "STAGE_COMPLETE"
	TriggerManualShow    = "MANUAL_SHOW"
)

// Events are immutable values dispatched through the event bus. They carry
// only value fields and are never mutated after creation.

// CurrencyChanged is raised by the ledger on every balance mutation.
type CurrencyChanged struct {
	Code     string
	Previous int64
	New      int64
}

// LevelCompleted is raised by gameplay when the player finishes a level.
type LevelCompleted struct {
	Level int
}

// StageCompleted is raised by gameplay when the player clears a stage.
type StageCompleted struct {
	Stage int
}

// ShowSingleOffer asks the engine to run a single-offer selection.
type ShowSingleOffer struct {
	Trigger string
}

// ShowChainedOffer asks the engine to surface the next chained offer.
type ShowChainedOffer struct {
	Trigger string
}

// ShowEndlessOffer asks the engine for the next endless-cycle offer.
type ShowEndlessOffer struct {
	Trigger string
}

// ShowMultipleOffer asks the engine to surface an offer bundle.
type ShowMultipleOffer struct {
	Trigger string
}

// SessionInfo is the snapshot carried by session lifecycle events.
type SessionInfo struct {
	ID           string
	StartedAt    time.Time
	LastUpdateAt time.Time
}

// SessionStarted is raised when a session begins.
type SessionStarted struct {
	Session SessionInfo
}

// SessionUpdated is raised on every session timer tick.
type SessionUpdated struct {
	Session SessionInfo
}

// SessionEnded is raised when the active session ends.
type SessionEnded struct {
	Session SessionInfo
}

// OfferPurchased is raised after a purchase completes and rewards are
// credited.
type OfferPurchased struct {
	OfferID   string
	ReceiptID string
}
