package ledger

import (
	"log/slog"
	"testing"

	"github.com/attaboy/monetize/internal/bus"
	"github.com/attaboy/monetize/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *[]domain.CurrencyChanged) {
	t.Helper()
	eventBus := bus.New(slog.Default())
	l := New(eventBus, slog.Default())

	var events []domain.CurrencyChanged
	bus.Register(eventBus, bus.HandlerFunc[domain.CurrencyChanged](func(ev domain.CurrencyChanged) {
		events = append(events, ev)
	}), 0)
	return l, &events
}

func TestGetUnknownCodeIsZero(t *testing.T) {
	l, _ := newTestLedger(t)
	assert.Equal(t, int64(0), l.Get("GEMS"))
}

func TestAdd(t *testing.T) {
	l, events := newTestLedger(t)

	require.NoError(t, l.Add("GEMS", 100))
	require.NoError(t, l.Add("GEMS", 50))
	assert.Equal(t, int64(150), l.Get("GEMS"))

	require.Len(t, *events, 2)
	assert.Equal(t, domain.CurrencyChanged{Code: "GEMS", Previous: 0, New: 100}, (*events)[0])
	assert.Equal(t, domain.CurrencyChanged{Code: "GEMS", Previous: 100, New: 150}, (*events)[1])
}

func TestAddNegativeIsUsageError(t *testing.T) {
	l, events := newTestLedger(t)

	err := l.Add("GEMS", -5)
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, int64(0), l.Get("GEMS"))
	assert.Empty(t, *events)
}

func TestAddZeroDoesNotNotify(t *testing.T) {
	l, events := newTestLedger(t)
	require.NoError(t, l.Add("GEMS", 0))
	assert.Empty(t, *events)
}

func TestSpend(t *testing.T) {
	l, events := newTestLedger(t)
	require.NoError(t, l.Add("GEMS", 100))

	tests := []struct {
		name        string
		amount      int64
		wantOK      bool
		wantBalance int64
	}{
		{"more than balance", 101, false, 100},
		{"negative amount", -1, false, 100},
		{"part of balance", 60, true, 40},
		{"exact balance", 40, true, 0},
		{"empty balance", 1, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOK, l.Spend("GEMS", tt.amount))
			assert.Equal(t, tt.wantBalance, l.Get("GEMS"))
		})
	}

	// initial Add, then the two successful spends
	require.Len(t, *events, 3)
	assert.Equal(t, domain.CurrencyChanged{Code: "GEMS", Previous: 100, New: 40}, (*events)[1])
	assert.Equal(t, domain.CurrencyChanged{Code: "GEMS", Previous: 40, New: 0}, (*events)[2])
}

func TestObserverReceivesChanges(t *testing.T) {
	l, _ := newTestLedger(t)

	var direct []domain.CurrencyChanged
	l.Observe(func(ev domain.CurrencyChanged) { direct = append(direct, ev) })

	require.NoError(t, l.Add("COINS", 10))
	require.True(t, l.Spend("COINS", 4))

	require.Len(t, direct, 2)
	assert.Equal(t, domain.CurrencyChanged{Code: "COINS", Previous: 10, New: 6}, direct[1])
}

func TestBalancesAreIndependentPerCode(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Add("GEMS", 10))
	require.NoError(t, l.Add("COINS", 20))

	require.True(t, l.Spend("GEMS", 10))
	assert.Equal(t, int64(0), l.Get("GEMS"))
	assert.Equal(t, int64(20), l.Get("COINS"))
}
