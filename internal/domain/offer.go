package domain

// OfferType classifies how an offer behaves after purchase.
type OfferType string

const (
	OfferSingle   OfferType = "Single"
	OfferChained  OfferType = "Chained"
	OfferEndless  OfferType = "Endless"
	OfferMultiple OfferType = "Multiple"
)

// ParseOfferType maps the wire string to an OfferType, defaulting to Single.
func ParseOfferType(s string) OfferType {
	switch s {
	case "Chained":
		return OfferChained
	case "Endless":
		return OfferEndless
	case "Multiple":
		return OfferMultiple
	default:
		return OfferSingle
	}
}

// Price is the cost of an offer in a single currency.
type Price struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Reward is one item credited to the player on purchase.
type Reward struct {
	ItemID string `json:"item_id"`
	Amount int64  `json:"amount"`
}

// Offer is one purchasable unit. Constructed once per fetch cycle and
// immutable thereafter; the engine indexes offers for the duration of one
// offer-set refresh.
type Offer struct {
	ID             string
	Type           OfferType
	Trigger        string // empty string means always-on
	TargetSegments map[string]string
	Price          Price
	Rewards        []Reward
	NextOfferID    string // Chained offers only
	Conditions     []Condition
}

// Eligible reports whether every condition evaluates true against state.
// An offer with no conditions is always eligible.
func (o *Offer) Eligible(state GameState) bool {
	for _, c := range o.Conditions {
		if !c.Evaluate(state) {
			return false
		}
	}
	return true
}

// MultipleOffer is a bundle of sub-offers gated by bundle-level conditions.
// Sub-offers are not individually re-validated against bundle conditions.
type MultipleOffer struct {
	ID         string
	Trigger    string
	Offers     []*Offer
	Conditions []Condition
}

// Eligible reports whether every bundle-level condition evaluates true.
func (m *MultipleOffer) Eligible(state GameState) bool {
	for _, c := range m.Conditions {
		if !c.Evaluate(state) {
			return false
		}
	}
	return true
}

// MatchesSegments reports whether the user's segment data satisfies the
// required segment constraints. An empty requirement always matches; a
// non-empty requirement never matches empty user segments.
func MatchesSegments(required, user map[string]string) bool {
	if len(required) == 0 {
		return true
	}
	if len(user) == 0 {
		return false
	}
	for k, want := range required {
		got, ok := user[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
