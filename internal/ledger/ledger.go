// Package ledger holds the player's soft-currency balances. Balances never
// go below zero and every mutation broadcasts a CurrencyChanged notification.
package ledger

import (
	"log/slog"

	"github.com/attaboy/monetize/internal/bus"
	"github.com/attaboy/monetize/internal/domain"
)

// Observer receives balance change notifications directly, outside the bus.
type Observer func(ev domain.CurrencyChanged)

// Ledger maps currency codes to non-negative balances.
type Ledger struct {
	balances  map[string]int64
	eventBus  *bus.Bus
	observers []Observer
	logger    *slog.Logger
}

// New creates an empty ledger. Changes are raised on eventBus as
// domain.CurrencyChanged.
func New(eventBus *bus.Bus, logger *slog.Logger) *Ledger {
	return &Ledger{
		balances: make(map[string]int64),
		eventBus: eventBus,
		logger:   logger,
	}
}

// Observe adds a direct observer for balance changes.
func (l *Ledger) Observe(fn Observer) {
	l.observers = append(l.observers, fn)
}

// Get returns the balance for code. Unknown codes have a zero balance.
func (l *Ledger) Get(code string) int64 {
	return l.balances[code]
}

// Add credits amount to code. A negative amount is a usage error.
func (l *Ledger) Add(code string, amount int64) error {
	if err := domain.ValidateNonNegativeAmount(amount); err != nil {
		return err
	}
	l.setBalance(code, l.Get(code)+amount)
	return nil
}

// Spend debits amount from code. Returns false with the balance unchanged if
// amount is negative or the balance is insufficient.
func (l *Ledger) Spend(code string, amount int64) bool {
	if amount < 0 {
		l.logger.Warn("rejecting negative spend", "currency", code, "amount", amount)
		return false
	}
	if l.Get(code) < amount {
		return false
	}
	l.setBalance(code, l.Get(code)-amount)
	return true
}

// setBalance clamps to a floor of zero. Spend's guard should already prevent
// negative results; the clamp is the invariant of last resort.
func (l *Ledger) setBalance(code string, value int64) {
	prev := l.Get(code)
	if value < 0 {
		value = 0
	}
	if value == prev {
		return
	}
	l.balances[code] = value

	ev := domain.CurrencyChanged{Code: code, Previous: prev, New: value}
	for _, fn := range l.observers {
		fn(ev)
	}
	bus.Raise(l.eventBus, ev)
}
