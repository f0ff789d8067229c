package offers

import (
	"context"
	"log/slog"

	"github.com/attaboy/monetize/internal/bus"
	"github.com/attaboy/monetize/internal/dispatch"
	"github.com/attaboy/monetize/internal/domain"
	"github.com/attaboy/monetize/internal/ledger"
	"github.com/google/uuid"
)

// Callback receives the outcome of a selection or purchase request. A nil
// offer means "no result": not eligible, not found, or the purchase failed.
type Callback func(offer *domain.Offer)

// BundleCallback receives the outcome of a bundle selection request.
type BundleCallback func(bundle *domain.MultipleOffer)

// Engine owns the offer indexes and orchestrates fetching, eligibility,
// selection and purchases.
//
// All engine state is confined to the dispatch loop: public methods must be
// called from the loop goroutine, and asynchronous service completions are
// posted back onto it before touching the indexes.
type Engine struct {
	logger   *slog.Logger
	svc      Service
	parser   *Parser
	wallet   *ledger.Ledger
	eventBus *bus.Bus
	loop     *dispatch.Loop

	strategy     Strategy // single/chained selection
	endless      Strategy
	bundleCursor int

	// offer lists per type, replaced wholesale by each fetch; both indexes
	// are rebuilt from the same lists.
	lists     map[domain.OfferType][]*domain.Offer
	bundles   []*domain.MultipleOffer
	byID      map[string]*domain.Offer
	byTrigger map[string][]*domain.Offer

	// per-resource fetch bookkeeping. A second request for a resource while
	// one is in flight is coalesced onto the pending fetch; a completion
	// carrying a superseded generation is discarded as stale.
	generation      map[string]uint64
	inflight        map[string][]func([]*domain.Offer)
	inflightBundles []func([]*domain.MultipleOffer)

	// session-triggered checks use the injected state and presenter.
	state     domain.GameState
	presenter Callback
}

// Config carries the engine's collaborators.
type Config struct {
	Logger   *slog.Logger
	Service  Service
	Parser   *Parser
	Wallet   *ledger.Ledger
	EventBus *bus.Bus
	Loop     *dispatch.Loop
	Strategy Strategy // nil defaults to rotation
}

// NewEngine creates an offer engine.
func NewEngine(cfg Config) *Engine {
	strategy := cfg.Strategy
	if strategy == nil {
		strategy = &RotationStrategy{}
	}
	return &Engine{
		logger:     cfg.Logger,
		svc:        cfg.Service,
		parser:     cfg.Parser,
		wallet:     cfg.Wallet,
		eventBus:   cfg.EventBus,
		loop:       cfg.Loop,
		strategy:   strategy,
		endless:    &EndlessRotationStrategy{},
		lists:      make(map[domain.OfferType][]*domain.Offer),
		byID:       make(map[string]*domain.Offer),
		byTrigger:  make(map[string][]*domain.Offer),
		generation: make(map[string]uint64),
		inflight:   make(map[string][]func([]*domain.Offer)),
	}
}

// SetPresenter installs the callback used for session-triggered offer checks.
func (e *Engine) SetPresenter(present Callback) { e.presenter = present }

// SetGameState installs the game-state provider used for session-triggered
// offer checks.
func (e *Engine) SetGameState(state domain.GameState) { e.state = state }

// RequestOffers fetches the resource for the given offer type, filters to
// that type and atomically rebuilds both indexes. The callback receives the
// fetched offers (empty on any failure; fetch failures never propagate as
// errors). Concurrent requests for the same type are coalesced onto the
// in-flight fetch.
func (e *Engine) RequestOffers(ctx context.Context, typ domain.OfferType, userSegments map[string]string, cb func([]*domain.Offer)) {
	if typ == domain.OfferMultiple {
		e.requestBundles(ctx, userSegments, func([]*domain.MultipleOffer) {
			if cb != nil {
				cb(nil)
			}
		})
		return
	}

	key := ResourceKeyFor(typ)
	if pending, ok := e.inflight[key]; ok {
		e.logger.Debug("coalescing offer request onto in-flight fetch", "resource", key)
		e.inflight[key] = append(pending, cb)
		return
	}
	e.inflight[key] = []func([]*domain.Offer){cb}
	e.generation[key]++
	gen := e.generation[key]

	e.svc.GetOffers(ctx, key, userSegments, func(dtos []OfferDTO, err error) {
		e.loop.Post(func() {
			e.completeFetch(key, typ, gen, userSegments, dtos, err)
		})
	})
}

func (e *Engine) completeFetch(key string, typ domain.OfferType, gen uint64, userSegments map[string]string, dtos []OfferDTO, err error) {
	if gen != e.generation[key] {
		e.logger.Debug("discarding stale offer response",
			"generation", gen, "error", domain.ErrStaleResponse(key))
		return
	}
	callbacks := e.inflight[key]
	delete(e.inflight, key)

	if err != nil {
		e.logger.Error("offer fetch failed, returning empty list", "resource", key, "error", err)
		e.invokeAll(callbacks, nil)
		return
	}

	fetched := make([]*domain.Offer, 0, len(dtos))
	for _, dto := range dtos {
		offer, ok := e.parser.MapOffer(dto, userSegments)
		if !ok {
			continue
		}
		if offer.Type != typ {
			e.logger.Warn("offer type does not match resource, skipping",
				"offer_id", offer.ID, "offer_type", offer.Type, "resource", key)
			continue
		}
		fetched = append(fetched, offer)
	}

	e.lists[typ] = fetched
	e.rebuildIndexes()
	e.logger.Info("offers indexed", "resource", key, "count", len(fetched))
	e.invokeAll(callbacks, fetched)
}

func (e *Engine) invokeAll(callbacks []func([]*domain.Offer), offers []*domain.Offer) {
	for _, cb := range callbacks {
		if cb != nil {
			cb(offers)
		}
	}
}

// rebuildIndexes replaces both derived maps from the current per-type lists
// and bundle sub-offers. Duplicate ids keep the most recently indexed offer
// (last wins) with a logged warning.
func (e *Engine) rebuildIndexes() {
	byID := make(map[string]*domain.Offer)
	byTrigger := make(map[string][]*domain.Offer)

	index := func(o *domain.Offer, trigger bool) {
		if prev, dup := byID[o.ID]; dup {
			e.logger.Warn("duplicate offer id, keeping most recent", "offer_id", o.ID, "previous_type", prev.Type)
			byTrigger[prev.Trigger] = removeOffer(byTrigger[prev.Trigger], prev)
		}
		byID[o.ID] = o
		if trigger {
			byTrigger[o.Trigger] = append(byTrigger[o.Trigger], o)
		}
	}

	for _, typ := range []domain.OfferType{domain.OfferSingle, domain.OfferChained, domain.OfferEndless} {
		for _, o := range e.lists[typ] {
			index(o, true)
		}
	}
	// bundle sub-offers join the flat index only: they are purchasable by id
	// but selected at the bundle level.
	for _, b := range e.bundles {
		for _, o := range b.Offers {
			index(o, false)
		}
	}

	e.byID = byID
	e.byTrigger = byTrigger
}

func removeOffer(list []*domain.Offer, target *domain.Offer) []*domain.Offer {
	out := list[:0]
	for _, o := range list {
		if o != target {
			out = append(out, o)
		}
	}
	return out
}

// GetEligibleOffers returns the offers of the trigger bucket whose conditions
// all hold, followed by the eligible always-on offers. Order is index
// insertion order; no re-sorting.
func (e *Engine) GetEligibleOffers(trigger string, state domain.GameState) []*domain.Offer {
	var eligible []*domain.Offer
	for _, o := range e.byTrigger[trigger] {
		if e.safeEligible(o, state) {
			eligible = append(eligible, o)
		}
	}
	if trigger != "" {
		for _, o := range e.byTrigger[""] {
			if e.safeEligible(o, state) {
				eligible = append(eligible, o)
			}
		}
	}
	return eligible
}

// safeEligible evaluates an offer's conditions, excluding the offer (rather
// than failing the caller) if a rule panics.
func (e *Engine) safeEligible(o *domain.Offer, state domain.GameState) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("condition evaluation panicked, excluding offer", "offer_id", o.ID, "panic", r)
			ok = false
		}
	}()
	return o.Eligible(state)
}

func (e *Engine) eligibleOfType(typ domain.OfferType, trigger string, state domain.GameState) []*domain.Offer {
	var out []*domain.Offer
	for _, o := range e.GetEligibleOffers(trigger, state) {
		if o.Type == typ {
			out = append(out, o)
		}
	}
	return out
}

// GetSingleOffer fetches single offers, evaluates eligibility for the trigger
// and presents the strategy's pick (nil when nothing is eligible).
func (e *Engine) GetSingleOffer(ctx context.Context, trigger string, state domain.GameState, userSegments map[string]string, present Callback) {
	e.RequestOffers(ctx, domain.OfferSingle, userSegments, func([]*domain.Offer) {
		e.selectAndPresent(domain.OfferSingle, trigger, state, e.strategy, present)
	})
}

// GetChainedOffer fetches chained offers and presents the strategy's pick for
// the trigger.
func (e *Engine) GetChainedOffer(ctx context.Context, trigger string, state domain.GameState, userSegments map[string]string, present Callback) {
	e.RequestOffers(ctx, domain.OfferChained, userSegments, func([]*domain.Offer) {
		e.selectAndPresent(domain.OfferChained, trigger, state, e.strategy, present)
	})
}

// GetEndlessOffer fetches endless offers and presents the next cycle offer.
func (e *Engine) GetEndlessOffer(ctx context.Context, trigger string, state domain.GameState, userSegments map[string]string, present Callback) {
	e.RequestOffers(ctx, domain.OfferEndless, userSegments, func([]*domain.Offer) {
		e.selectAndPresent(domain.OfferEndless, trigger, state, e.endless, present)
	})
}

func (e *Engine) selectAndPresent(typ domain.OfferType, trigger string, state domain.GameState, strategy Strategy, present Callback) {
	eligible := e.eligibleOfType(typ, trigger, state)
	selected := strategy.Select(eligible, trigger, state)
	if selected == nil {
		e.logger.Info("no eligible offer", "type", typ, "trigger", trigger)
	}
	if present != nil {
		present(selected)
	}
}

// GetMultipleOffer fetches bundles, filters by trigger equality and bundle
// eligibility, and presents one bundle chosen by rotation. Sub-offers of all
// fetched bundles are merged into the flat id index so they can be purchased
// individually.
func (e *Engine) GetMultipleOffer(ctx context.Context, trigger string, state domain.GameState, userSegments map[string]string, present BundleCallback) {
	e.requestBundles(ctx, userSegments, func(bundles []*domain.MultipleOffer) {
		var candidates []*domain.MultipleOffer
		for _, b := range bundles {
			if b.Trigger == trigger && e.safeBundleEligible(b, state) {
				candidates = append(candidates, b)
			}
		}
		var selected *domain.MultipleOffer
		if len(candidates) > 0 {
			selected = candidates[e.bundleCursor%len(candidates)]
			e.bundleCursor++
		} else {
			e.logger.Info("no eligible offer bundle", "trigger", trigger)
		}
		if present != nil {
			present(selected)
		}
	})
}

func (e *Engine) requestBundles(ctx context.Context, userSegments map[string]string, cb func([]*domain.MultipleOffer)) {
	if e.inflightBundles != nil {
		e.logger.Debug("coalescing bundle request onto in-flight fetch")
		e.inflightBundles = append(e.inflightBundles, cb)
		return
	}
	e.inflightBundles = []func([]*domain.MultipleOffer){cb}

	key := ResourceMultipleOffers
	e.generation[key]++
	gen := e.generation[key]

	e.svc.GetMultipleOffers(ctx, userSegments, func(dtos []MultipleOfferDTO, err error) {
		e.loop.Post(func() {
			if gen != e.generation[key] {
				e.logger.Debug("discarding stale bundle response",
					"generation", gen, "error", domain.ErrStaleResponse(key))
				return
			}
			callbacks := e.inflightBundles
			e.inflightBundles = nil

			var bundles []*domain.MultipleOffer
			if err != nil {
				e.logger.Error("bundle fetch failed, returning empty list", "error", err)
			} else {
				bundles = make([]*domain.MultipleOffer, 0, len(dtos))
				for _, dto := range dtos {
					bundles = append(bundles, e.parser.MapMultipleOffer(dto, userSegments))
				}
				e.bundles = bundles
				e.rebuildIndexes()
				e.logger.Info("offer bundles indexed", "count", len(bundles))
			}
			for _, join := range callbacks {
				if join != nil {
					join(bundles)
				}
			}
		})
	})
}

func (e *Engine) safeBundleEligible(b *domain.MultipleOffer, state domain.GameState) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("bundle condition evaluation panicked, excluding bundle", "bundle_id", b.ID, "panic", r)
			ok = false
		}
	}()
	return b.Eligible(state)
}

// BuyOfferWithID marks the offer purchased through the request service and,
// on success, credits every reward to the wallet and invokes cb with the
// offer. cb receives nil when the id is unknown or persistence fails; in the
// failure case no reward is granted.
//
// BuyOfferWithID does not debit currency. The debit happens strictly before,
// at the purchase entry point (HandleBuyOffer); callers bypassing it must
// spend first.
func (e *Engine) BuyOfferWithID(ctx context.Context, offerID string, cb Callback) {
	offer, ok := e.byID[offerID]
	if !ok {
		e.logger.Warn("purchase for unknown offer id", "offer_id", offerID)
		if cb != nil {
			cb(nil)
		}
		return
	}

	e.svc.MarkOfferAsPurchased(ctx, offer, func(persisted bool) {
		e.loop.Post(func() {
			if !persisted {
				e.logger.Error("no reward granted", "offer_id", offer.ID,
					"error", domain.ErrPersistence("record purchase", nil))
				if cb != nil {
					cb(nil)
				}
				return
			}
			for _, r := range offer.Rewards {
				if err := e.wallet.Add(r.ItemID, r.Amount); err != nil {
					e.logger.Error("failed to credit reward", "offer_id", offer.ID, "item_id", r.ItemID, "error", err)
				}
			}
			bus.Raise(e.eventBus, domain.OfferPurchased{OfferID: offer.ID, ReceiptID: uuid.NewString()})
			if cb != nil {
				cb(offer)
			}
		})
	})
}

// HandleBuyOffer is the purchase entry point: it looks up the offer, debits
// the price via the wallet, delegates to BuyOfferWithID and triggers the
// chained/endless continuation.
//
// The debit happens strictly before reward-granting and before marking
// purchased. Insufficient funds abort the purchase before any state
// mutation. If persistence fails after a successful debit, the debit is
// refunded.
//
// next, when non-nil, receives the follow-up offer of a chained or endless
// purchase (nil when no eligible follow-up exists). Presenting it is the
// caller's decision; continuation is never automatic.
func (e *Engine) HandleBuyOffer(ctx context.Context, offerID string, state domain.GameState, cb Callback, next Callback) {
	offer, ok := e.byID[offerID]
	if !ok {
		e.logger.Warn("buy request for unknown offer id", "offer_id", offerID)
		if cb != nil {
			cb(nil)
		}
		return
	}

	debited := false
	if offer.Price.Amount > 0 {
		if !e.wallet.Spend(offer.Price.Currency, offer.Price.Amount) {
			e.logger.Warn("purchase denied", "offer_id", offer.ID, "price", offer.Price.Amount,
				"error", domain.ErrInsufficientBalance(offer.Price.Currency))
			if cb != nil {
				cb(nil)
			}
			return
		}
		debited = true
	}

	e.BuyOfferWithID(ctx, offerID, func(purchased *domain.Offer) {
		if purchased == nil {
			if debited {
				if err := e.wallet.Add(offer.Price.Currency, offer.Price.Amount); err != nil {
					e.logger.Error("failed to refund aborted purchase", "offer_id", offer.ID, "error", err)
				}
			}
			if cb != nil {
				cb(nil)
			}
			return
		}
		if cb != nil {
			cb(purchased)
		}
		e.continueAfterPurchase(ctx, purchased, state, next)
	})
}

// continueAfterPurchase re-queries the relevant pool and hands the follow-up
// offer to next: the chain's next link after a chained purchase, the next
// cycle offer after an endless purchase.
func (e *Engine) continueAfterPurchase(ctx context.Context, purchased *domain.Offer, state domain.GameState, next Callback) {
	if next == nil {
		return
	}
	segments := map[string]string{}
	if state != nil {
		segments = state.GetUserSegmentation()
	}

	switch purchased.Type {
	case domain.OfferChained:
		e.RequestOffers(ctx, domain.OfferChained, segments, func([]*domain.Offer) {
			if purchased.NextOfferID == "" {
				next(nil)
				return
			}
			link, ok := e.byID[purchased.NextOfferID]
			if !ok || link.Type != domain.OfferChained || !e.safeEligible(link, state) {
				next(nil)
				return
			}
			next(link)
		})
	case domain.OfferEndless:
		e.RequestOffers(ctx, domain.OfferEndless, segments, func([]*domain.Offer) {
			eligible := e.eligibleOfType(domain.OfferEndless, purchased.Trigger, state)
			selected := e.endless.Select(eligible, purchased.Trigger, state)
			// Compare ids, not pointers: the re-fetch above re-parses the
			// pool, so the purchased offer's pointer never survives it.
			if selected != nil && selected.ID == purchased.ID && len(eligible) > 1 {
				selected = e.endless.Select(eligible, purchased.Trigger, state)
			}
			next(selected)
		})
	default:
		next(nil)
	}
}

// Session lifecycle: the engine listens to the session scheduler and runs a
// session-triggered single-offer check on start and on every update tick.

func (e *Engine) OnSessionStarted(info domain.SessionInfo) {
	e.sessionCheck(domain.TriggerSessionStart, info)
}

func (e *Engine) OnSessionUpdated(info domain.SessionInfo) {
	e.sessionCheck(domain.TriggerSessionUpdate, info)
}

func (e *Engine) OnSessionEnded(info domain.SessionInfo) {
	e.logger.Info("session ended", "session_id", info.ID)
}

func (e *Engine) sessionCheck(trigger string, info domain.SessionInfo) {
	if e.state == nil || e.presenter == nil {
		e.logger.Debug("skipping session offer check, no game state or presenter", "trigger", trigger)
		return
	}
	e.logger.Debug("session offer check", "trigger", trigger, "session_id", info.ID)
	e.GetSingleOffer(context.Background(), trigger, e.state, e.state.GetUserSegmentation(), e.presenter)
}
