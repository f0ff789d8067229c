package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/attaboy/monetize/internal/bus"
	"github.com/attaboy/monetize/internal/dispatch"
	"github.com/attaboy/monetize/internal/domain"
	"github.com/attaboy/monetize/internal/infra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *infra.Config {
	return &infra.Config{
		SessionUpdateSeconds: 30,
		DisableAutoSession:   true,
		SelectionStrategy:    "rotation",
		OffersDir:            "../../testdata/offers",
		StoreDriver:          infra.StoreMemory,
	}
}

func TestNewRejectsAutoSessionOnInlineLoop(t *testing.T) {
	cfg := testConfig()
	cfg.DisableAutoSession = false

	_, err := New(context.Background(), cfg, Deps{
		Logger: slog.Default(),
		Loop:   dispatch.Synchronous(),
	})

	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestInlineLoopAllowedWithoutAutoSession(t *testing.T) {
	sdk, err := New(context.Background(), testConfig(), Deps{
		Logger: slog.Default(),
		Loop:   dispatch.Synchronous(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { sdk.Close() })
	assert.False(t, sdk.Sessions.Active())
}

func TestDefaultLoopQueuesEngineWork(t *testing.T) {
	presented := 0
	sdk, err := New(context.Background(), testConfig(), Deps{
		Logger:    slog.Default(),
		Presenter: func(*domain.Offer) { presented++ },
	})
	require.NoError(t, err)
	t.Cleanup(func() { sdk.Close() })
	require.False(t, sdk.Loop.Inline(), "default loop must serialize cross-goroutine work")

	bus.Raise(sdk.Bus, domain.ShowSingleOffer{Trigger: domain.TriggerManualShow})
	assert.Zero(t, presented, "engine completions wait for the loop to be drained")

	sdk.Loop.RunPending()
	assert.Equal(t, 1, presented)
}

func TestAutoSessionStartsOnDefaultLoop(t *testing.T) {
	cfg := testConfig()
	cfg.DisableAutoSession = false

	sdk, err := New(context.Background(), cfg, Deps{Logger: slog.Default()})
	require.NoError(t, err)
	t.Cleanup(func() { sdk.Close() })

	assert.True(t, sdk.Sessions.Active())
}
