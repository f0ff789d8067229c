// Package request implements the offer request service: fixture-backed,
// HTTP-backed, and a local stub server that serves the fixtures the way a
// real offer backend would.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/attaboy/monetize/internal/domain"
	"github.com/attaboy/monetize/internal/offers"
	"github.com/attaboy/monetize/internal/store"
)

// FixtureService serves offer definitions from static JSON files
// (<dir>/<resourceKey>.json) and records purchases in a purchase store.
// Callbacks complete synchronously on the calling goroutine.
type FixtureService struct {
	dir       string
	purchases store.Store
	logger    *slog.Logger
}

// NewFixtureService creates a fixture-backed request service.
func NewFixtureService(dir string, purchases store.Store, logger *slog.Logger) *FixtureService {
	return &FixtureService{dir: dir, purchases: purchases, logger: logger}
}

// GetOffers loads and decodes the resource. A missing or unparseable file
// yields an error to the callback; the engine converts that into an empty
// offer list.
func (s *FixtureService) GetOffers(_ context.Context, resourceKey string, _ map[string]string, cb func([]offers.OfferDTO, error)) {
	path := filepath.Join(s.dir, resourceKey+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to load offer fixture", "path", path, "error", err)
		cb(nil, domain.ErrNotFound("offer resource", resourceKey))
		return
	}
	var wrapper offers.OfferListDTO
	if err := json.Unmarshal(data, &wrapper); err != nil {
		s.logger.Error("failed to parse offer fixture", "path", path, "error", err)
		cb(nil, fmt.Errorf("parse %s: %w", path, err))
		return
	}
	cb(wrapper.Offers, nil)
}

// GetMultipleOffers loads and decodes the bundle resource.
func (s *FixtureService) GetMultipleOffers(_ context.Context, _ map[string]string, cb func([]offers.MultipleOfferDTO, error)) {
	path := filepath.Join(s.dir, offers.ResourceMultipleOffers+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to load bundle fixture", "path", path, "error", err)
		cb(nil, domain.ErrNotFound("offer resource", offers.ResourceMultipleOffers))
		return
	}
	var wrapper offers.MultipleOfferListDTO
	if err := json.Unmarshal(data, &wrapper); err != nil {
		s.logger.Error("failed to parse bundle fixture", "path", path, "error", err)
		cb(nil, fmt.Errorf("parse %s: %w", path, err))
		return
	}
	cb(wrapper.MultipleOffers, nil)
}

// MarkOfferAsPurchased records the purchase in the purchase store.
func (s *FixtureService) MarkOfferAsPurchased(ctx context.Context, offer *domain.Offer, cb func(bool)) {
	if err := s.purchases.MarkPurchased(ctx, offer.ID); err != nil {
		s.logger.Error("failed to record purchase", "offer_id", offer.ID, "error", err)
		cb(false)
		return
	}
	cb(true)
}
