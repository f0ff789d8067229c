// Package app is the SDK composition root. Every subsystem is constructed
// exactly once here and wired through explicit references; there is no
// process-wide singleton instance.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/attaboy/monetize/internal/bus"
	"github.com/attaboy/monetize/internal/dispatch"
	"github.com/attaboy/monetize/internal/domain"
	"github.com/attaboy/monetize/internal/infra"
	"github.com/attaboy/monetize/internal/ledger"
	"github.com/attaboy/monetize/internal/offers"
	"github.com/attaboy/monetize/internal/request"
	"github.com/attaboy/monetize/internal/session"
	"github.com/attaboy/monetize/internal/store"
)

// Deps holds the host-game collaborators the SDK consumes.
type Deps struct {
	Logger *slog.Logger
	// GameState provides the read-only facts for eligibility evaluation.
	GameState domain.GameState
	// Presenter receives the offer selected by session-triggered checks.
	// The host owns all display logic.
	Presenter offers.Callback
	// Loop defaults to a queued loop when nil; drain it per frame with
	// RunPending (or run it with Run). A dispatch.Synchronous loop is only
	// safe when every subsystem runs on one goroutine, which rules out the
	// session ticker: automatic session tracking on an inline loop is
	// rejected by New.
	Loop *dispatch.Loop
	// Service overrides the request service (fixtures or HTTP by config
	// when nil).
	Service offers.Service
	// Purchases overrides the purchase store (chosen by config when nil).
	Purchases store.Store
}

// SDK bundles the wired subsystems.
type SDK struct {
	Bus       *bus.Bus
	Loop      *dispatch.Loop
	Wallet    *ledger.Ledger
	Engine    *offers.Engine
	Sessions  *session.Scheduler
	Purchases store.Store

	closers []func() error
}

// New wires the SDK from config and host dependencies.
func New(ctx context.Context, cfg *infra.Config, deps Deps) (*SDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loop := deps.Loop
	if loop == nil {
		loop = dispatch.New(0)
	}
	// An inline loop runs session ticks directly on the ticker goroutine,
	// racing the host's game thread over engine and ledger state.
	if !cfg.DisableAutoSession && loop.Inline() {
		return nil, domain.ErrValidation(
			"automatic session tracking needs a queued dispatch loop; pass dispatch.New or set DISABLE_AUTO_SESSION")
	}

	sdk := &SDK{Loop: loop}

	purchases := deps.Purchases
	if purchases == nil {
		var err error
		purchases, err = newStore(ctx, cfg, logger, sdk)
		if err != nil {
			return nil, err
		}
	}
	sdk.Purchases = purchases

	svc := deps.Service
	if svc == nil {
		if cfg.OfferServerURL != "" {
			svc = request.NewHTTPService(cfg.OfferServerURL, logger)
		} else {
			svc = request.NewFixtureService(cfg.OffersDir, purchases, logger)
		}
	}

	strategy, err := offers.NewStrategy(cfg.SelectionStrategy)
	if err != nil {
		return nil, err
	}

	eventBus := bus.New(logger)
	wallet := ledger.New(eventBus, logger)

	engine := offers.NewEngine(offers.Config{
		Logger:   logger,
		Service:  svc,
		Parser:   offers.NewParser(logger, nil),
		Wallet:   wallet,
		EventBus: eventBus,
		Loop:     loop,
		Strategy: strategy,
	})
	engine.SetGameState(deps.GameState)
	engine.SetPresenter(deps.Presenter)

	sessions := session.NewScheduler(eventBus, loop, cfg.SessionInterval(), logger, nil)
	sessions.AddListener(engine)

	registerEngineHandlers(eventBus, engine, deps)

	sdk.Bus = eventBus
	sdk.Wallet = wallet
	sdk.Engine = engine
	sdk.Sessions = sessions

	if !cfg.DisableAutoSession {
		sessions.BeginSession()
	}
	return sdk, nil
}

// registerEngineHandlers subscribes the engine to the gameplay-facing show
// events. Priority 0 keeps gameplay handlers ahead when they register lower.
func registerEngineHandlers(eventBus *bus.Bus, engine *offers.Engine, deps Deps) {
	state := func() domain.GameState { return deps.GameState }
	segments := func() map[string]string {
		if deps.GameState == nil {
			return nil
		}
		return deps.GameState.GetUserSegmentation()
	}

	bus.Register(eventBus, bus.HandlerFunc[domain.ShowSingleOffer](func(ev domain.ShowSingleOffer) {
		engine.GetSingleOffer(context.Background(), ev.Trigger, state(), segments(), deps.Presenter)
	}), 0)
	bus.Register(eventBus, bus.HandlerFunc[domain.ShowChainedOffer](func(ev domain.ShowChainedOffer) {
		engine.GetChainedOffer(context.Background(), ev.Trigger, state(), segments(), deps.Presenter)
	}), 0)
	bus.Register(eventBus, bus.HandlerFunc[domain.ShowEndlessOffer](func(ev domain.ShowEndlessOffer) {
		engine.GetEndlessOffer(context.Background(), ev.Trigger, state(), segments(), deps.Presenter)
	}), 0)
	bus.Register(eventBus, bus.HandlerFunc[domain.ShowMultipleOffer](func(ev domain.ShowMultipleOffer) {
		engine.GetMultipleOffer(context.Background(), ev.Trigger, state(), segments(), nil)
	}), 0)
}

func newStore(ctx context.Context, cfg *infra.Config, logger *slog.Logger, sdk *SDK) (store.Store, error) {
	switch cfg.StoreDriver {
	case infra.StoreSQLite:
		s, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open purchase store: %w", err)
		}
		sdk.closers = append(sdk.closers, s.Close)
		return s, nil
	case infra.StorePostgres:
		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return nil, fmt.Errorf("migrate purchase store: %w", err)
		}
		pool, err := infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect purchase store: %w", err)
		}
		sdk.closers = append(sdk.closers, func() error { pool.Close(); return nil })
		return store.NewPostgresStore(pool), nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// Close ends the active session and releases store resources.
func (s *SDK) Close() error {
	if s.Sessions != nil && s.Sessions.Active() {
		s.Sessions.EndSession()
	}
	var firstErr error
	for _, close := range s.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
