package offers

import (
	"log/slog"
	"time"

	"github.com/attaboy/monetize/internal/domain"
)

// Parser maps wire DTOs into runtime offers: segment gating, variant
// resolution, condition compilation.
type Parser struct {
	logger *slog.Logger
	now    domain.Clock
}

// NewParser creates a parser. A nil clock defaults to time.Now.
func NewParser(logger *slog.Logger, now domain.Clock) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{logger: logger, now: now}
}

// MapOffer maps a DTO into a runtime Offer, selecting the first variant whose
// segments match userSegments and falling back to the base offer values.
// Returns false when the offer's target segments do not match userSegments:
// the offer is excluded entirely.
func (p *Parser) MapOffer(dto OfferDTO, userSegments map[string]string) (*domain.Offer, bool) {
	targets := segmentsToMap(dto.Targets)
	if !domain.MatchesSegments(targets, userSegments) {
		return nil, false
	}

	var variant *VariantDTO
	for i := range dto.Variants {
		if domain.MatchesSegments(segmentsToMap(dto.Variants[i].Segments), userSegments) {
			variant = &dto.Variants[i]
			break
		}
	}

	price := domain.Price{Currency: dto.Price.Currency, Amount: dto.Price.Amount}
	rewards := dto.Rewards
	specs := dto.Conditions
	if variant != nil {
		if variant.Price != nil {
			price = domain.Price{Currency: variant.Price.Currency, Amount: variant.Price.Amount}
		}
		if variant.Rewards != nil {
			rewards = variant.Rewards
		}
		if len(variant.Conditions) > 0 {
			specs = variant.Conditions
		}
	}

	offer := &domain.Offer{
		ID:             dto.ID,
		Type:           domain.ParseOfferType(dto.Type),
		Trigger:        dto.Trigger,
		TargetSegments: targets,
		Price:          price,
		Rewards:        mapRewards(rewards),
		NextOfferID:    dto.NextOfferID,
		Conditions:     p.compileConditions(specs, dto.ID),
	}
	return offer, true
}

// MapMultipleOffer maps a bundle, dropping any sub-offer that fails segment
// matching. Bundle-level conditions are compiled the same way as offer
// conditions.
func (p *Parser) MapMultipleOffer(dto MultipleOfferDTO, userSegments map[string]string) *domain.MultipleOffer {
	var subs []*domain.Offer
	for _, sub := range dto.Offers {
		if offer, ok := p.MapOffer(sub, userSegments); ok {
			subs = append(subs, offer)
		}
	}
	return &domain.MultipleOffer{
		ID:         dto.ID,
		Trigger:    dto.Trigger,
		Offers:     subs,
		Conditions: p.compileConditions(dto.Conditions, dto.ID),
	}
}

func (p *Parser) compileConditions(specs []domain.ConditionSpec, ownerID string) []domain.Condition {
	conditions := make([]domain.Condition, 0, len(specs))
	for _, spec := range specs {
		conditions = append(conditions, domain.CompileCondition(spec, ownerID, p.logger, p.now))
	}
	return conditions
}

func mapRewards(dtos []RewardDTO) []domain.Reward {
	rewards := make([]domain.Reward, 0, len(dtos))
	for _, r := range dtos {
		rewards = append(rewards, domain.Reward{ItemID: r.ItemID, Amount: r.Amount})
	}
	return rewards
}

func segmentsToMap(entries []SegmentEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}
