// Command simulator runs a scripted gameplay session against the SDK:
// currency grants, level progression, offer selection and purchases,
// including chained and endless continuations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/attaboy/monetize/internal/app"
	"github.com/attaboy/monetize/internal/bus"
	"github.com/attaboy/monetize/internal/dispatch"
	"github.com/attaboy/monetize/internal/domain"
	"github.com/attaboy/monetize/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("simulator failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx := context.Background()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.DisableAutoSession = true // begin explicitly after wiring the game state

	// The simulator plays the host game's main thread: engine completions
	// queue on the loop and are drained between steps, like a frame pump.
	loop := dispatch.New(256)

	state := &gameState{
		region:     "EU",
		playerType: "casual",
		lastShown:  make(map[string]time.Time),
	}

	presented := func(offer *domain.Offer) {
		if offer == nil {
			logger.Info("no offer to present")
			return
		}
		state.lastShown[offer.ID] = time.Now()
		logger.Info("presenting offer",
			"offer_id", offer.ID, "type", offer.Type,
			"price", fmt.Sprintf("%d %s", offer.Price.Amount, offer.Price.Currency))
	}

	sdk, err := app.New(ctx, cfg, app.Deps{
		Logger:    logger,
		GameState: state,
		Presenter: presented,
		Loop:      loop,
	})
	if err != nil {
		return fmt.Errorf("wire sdk: %w", err)
	}
	defer sdk.Close()
	state.sdk = sdk

	bus.Register(sdk.Bus, bus.HandlerFunc[domain.CurrencyChanged](func(ev domain.CurrencyChanged) {
		logger.Info("balance changed", "currency", ev.Code, "previous", ev.Previous, "new", ev.New)
	}), 0)
	bus.Register(sdk.Bus, bus.HandlerFunc[domain.LevelCompleted](func(ev domain.LevelCompleted) {
		state.level = ev.Level
	}), -10)

	// Grant starting currency and play a few levels.
	if err := sdk.Wallet.Add("GEMS", 500); err != nil {
		return err
	}
	for level := 1; level <= 6; level++ {
		bus.Raise(sdk.Bus, domain.LevelCompleted{Level: level})
	}

	sdk.Sessions.BeginSession()
	loop.RunPending()

	// Level-complete offer: eligible now that the player passed level 5.
	bus.Raise(sdk.Bus, domain.ShowSingleOffer{Trigger: domain.TriggerLevelComplete})
	loop.RunPending()

	var lastPresented *domain.Offer
	sdk.Engine.GetSingleOffer(ctx, domain.TriggerLevelComplete, state, state.GetUserSegmentation(),
		func(offer *domain.Offer) { lastPresented = offer })
	loop.RunPending()
	if lastPresented != nil {
		sdk.Engine.HandleBuyOffer(ctx, lastPresented.ID, state,
			func(offer *domain.Offer) {
				if offer != nil {
					logger.Info("purchase complete", "offer_id", offer.ID)
				} else {
					logger.Warn("purchase failed", "offer_id", lastPresented.ID)
				}
			}, nil)
		loop.RunPending()
	}

	// Walk the offer chain as far as the wallet allows.
	state.stages = 2
	sdk.Engine.GetChainedOffer(ctx, domain.TriggerStageComplete, state, state.GetUserSegmentation(), presented)
	loop.RunPending()
	buyChain(ctx, sdk, state, "chain_1", logger)
	loop.RunPending()

	// Two endless cycles.
	sdk.Engine.GetEndlessOffer(ctx, domain.TriggerManualShow, state, state.GetUserSegmentation(), presented)
	sdk.Engine.GetEndlessOffer(ctx, domain.TriggerManualShow, state, state.GetUserSegmentation(), presented)
	loop.RunPending()

	sdk.Sessions.EndSession()
	logger.Info("simulation finished",
		"gems", sdk.Wallet.Get("GEMS"), "coins", sdk.Wallet.Get("COINS"), "energy", sdk.Wallet.Get("ENERGY"))
	return nil
}

// buyChain purchases offerID and follows the chained continuation until it
// runs out.
func buyChain(ctx context.Context, sdk *app.SDK, state *gameState, offerID string, logger *slog.Logger) {
	sdk.Engine.HandleBuyOffer(ctx, offerID, state,
		func(offer *domain.Offer) {
			if offer != nil {
				logger.Info("chain link purchased", "offer_id", offer.ID)
			}
		},
		func(next *domain.Offer) {
			if next == nil {
				logger.Info("chain exhausted")
				return
			}
			buyChain(ctx, sdk, state, next.ID, logger)
		})
}

// gameState is the host game's read-only fact provider. Balances come from
// the SDK wallet, purchase history from the purchase store.
type gameState struct {
	sdk        *app.SDK
	level      int
	stages     int
	region     string
	playerType string
	lastShown  map[string]time.Time
}

func (g *gameState) GetPlayerLevel() int     { return g.level }
func (g *gameState) GetCompletedStages() int { return g.stages }
func (g *gameState) GetRegion() string       { return g.region }
func (g *gameState) GetPlayerType() string   { return g.playerType }

func (g *gameState) GetCurrency(code string) int64 {
	if g.sdk == nil {
		return 0
	}
	return g.sdk.Wallet.Get(code)
}

func (g *gameState) HasPurchased(offerID string) bool {
	if g.sdk == nil {
		return false
	}
	purchased, err := g.sdk.Purchases.HasPurchased(context.Background(), offerID)
	return err == nil && purchased
}

func (g *gameState) GetLastShown(offerID string) time.Time {
	return g.lastShown[offerID]
}

func (g *gameState) GetUserSegmentation() map[string]string {
	return map[string]string{
		"region":     g.region,
		"playerType": g.playerType,
	}
}
