package offers

import (
	"fmt"
	"math/rand"

	"github.com/attaboy/monetize/internal/domain"
)

// Strategy picks one offer from the eligible set, or nil for none. The
// engine calls Select with a stable, insertion-ordered list.
type Strategy interface {
	Select(eligible []*domain.Offer, trigger string, state domain.GameState) *domain.Offer
}

// Strategy names accepted by configuration.
const (
	StrategyRotation        = "rotation"
	StrategyRandom          = "random"
	StrategyHasNotShown     = "has_not_shown"
	StrategyEndlessRotation = "endless_rotation"
)

// NewStrategy builds a strategy by name. Empty name yields the default
// rotation strategy.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "", StrategyRotation:
		return &RotationStrategy{}, nil
	case StrategyRandom:
		return &RandomStrategy{}, nil
	case StrategyHasNotShown:
		return &HasNotShownStrategy{}, nil
	case StrategyEndlessRotation:
		return &EndlessRotationStrategy{}, nil
	default:
		return nil, domain.ErrValidation(fmt.Sprintf("unknown selection strategy: %q", name))
	}
}

// RotationStrategy cycles through the eligible list with a monotonically
// increasing cursor. Always returns an offer if the list is non-empty.
type RotationStrategy struct {
	cursor int
}

func (s *RotationStrategy) Select(eligible []*domain.Offer, _ string, _ domain.GameState) *domain.Offer {
	if len(eligible) == 0 {
		return nil
	}
	offer := eligible[s.cursor%len(eligible)]
	s.cursor++
	return offer
}

// RandomStrategy picks uniformly at random.
type RandomStrategy struct {
	// Intn overrides the random source for tests.
	Intn func(n int) int
}

func (s *RandomStrategy) Select(eligible []*domain.Offer, _ string, _ domain.GameState) *domain.Offer {
	if len(eligible) == 0 {
		return nil
	}
	intn := s.Intn
	if intn == nil {
		intn = rand.Intn
	}
	return eligible[intn(len(eligible))]
}

// HasNotShownStrategy returns the first offer in list order the player has
// not purchased yet, or nil if all were purchased.
type HasNotShownStrategy struct{}

func (HasNotShownStrategy) Select(eligible []*domain.Offer, _ string, state domain.GameState) *domain.Offer {
	for _, offer := range eligible {
		if !state.HasPurchased(offer.ID) {
			return offer
		}
	}
	return nil
}

// EndlessRotationStrategy keeps an internal FIFO, reseeded whenever the
// eligible set's cardinality changes, and dequeues + re-enqueues on every
// call: a true round-robin that never terminates.
type EndlessRotationStrategy struct {
	queue []*domain.Offer
}

func (s *EndlessRotationStrategy) Select(eligible []*domain.Offer, _ string, _ domain.GameState) *domain.Offer {
	if len(eligible) == 0 {
		return nil
	}
	if len(s.queue) != len(eligible) {
		s.queue = append([]*domain.Offer(nil), eligible...)
	}
	next := s.queue[0]
	s.queue = append(s.queue[1:], next)
	return next
}
