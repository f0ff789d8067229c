package offers

import (
	"context"

	"github.com/attaboy/monetize/internal/domain"
)

// Wire shapes for offer definitions. The payload is loaded from static
// fixtures or an offer backend; either way it flows through the same parsing
// and eligibility pipeline.

// SegmentEntry is one key/value pair of a segment constraint list.
type SegmentEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PriceDTO is the wire shape of an offer price.
type PriceDTO struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// RewardDTO is the wire shape of one reward line.
type RewardDTO struct {
	ItemID string `json:"itemId"`
	Amount int64  `json:"amount"`
}

// VariantDTO is a segment-scoped override of price/rewards/conditions.
type VariantDTO struct {
	Price      *PriceDTO              `json:"price"`
	Rewards    []RewardDTO            `json:"rewards"`
	Conditions []domain.ConditionSpec `json:"conditions"`
	Segments   []SegmentEntry         `json:"segments"`
}

// OfferDTO is the wire shape of a single offer definition.
type OfferDTO struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Trigger     string                 `json:"trigger"`
	NextOfferID string                 `json:"nextOfferId"`
	Price       PriceDTO               `json:"price"`
	Rewards     []RewardDTO            `json:"rewards"`
	Conditions  []domain.ConditionSpec `json:"conditions"`
	Variants    []VariantDTO           `json:"variants"`
	Targets     []SegmentEntry         `json:"targetSegments"`
}

// OfferListDTO is the top-level wrapper of an offer resource.
type OfferListDTO struct {
	Offers []OfferDTO `json:"offers"`
}

// MultipleOfferDTO is the wire shape of an offer bundle.
type MultipleOfferDTO struct {
	ID         string                 `json:"id"`
	Trigger    string                 `json:"trigger"`
	Offers     []OfferDTO             `json:"offers"`
	Conditions []domain.ConditionSpec `json:"conditions"`
}

// MultipleOfferListDTO is the top-level wrapper of the bundle resource.
type MultipleOfferListDTO struct {
	MultipleOffers []MultipleOfferDTO `json:"multipleOffers"`
}

// Resource keys, fixed per offer type.
const (
	ResourceSingleOffers   = "singleOffers"
	ResourceMultipleOffers = "multipleOffers"
	ResourceChainedOffers  = "chainedOffers"
	ResourceEndlessOffers  = "endlessOffers"
)

// ResourceKeyFor returns the resource key holding offers of the given type.
func ResourceKeyFor(t domain.OfferType) string {
	switch t {
	case domain.OfferMultiple:
		return ResourceMultipleOffers
	case domain.OfferChained:
		return ResourceChainedOffers
	case domain.OfferEndless:
		return ResourceEndlessOffers
	default:
		return ResourceSingleOffers
	}
}

// Service fetches offer definitions and records purchases. Implementations
// may complete callbacks synchronously or asynchronously; the engine
// tolerates both and marshals completions onto its dispatch loop.
type Service interface {
	GetOffers(ctx context.Context, resourceKey string, userSegments map[string]string, cb func([]OfferDTO, error))
	GetMultipleOffers(ctx context.Context, userSegments map[string]string, cb func([]MultipleOfferDTO, error))
	MarkOfferAsPurchased(ctx context.Context, offer *domain.Offer, cb func(ok bool))
}
