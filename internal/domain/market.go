// Package domain holds the value types shared by every component of the
// trading engine: markets, books, reference prices, positions, orders,
// intents, fills and decisions.
package domain

import "fmt"

// Market is the static, immutable definition of a binary outcome.
type Market struct {
	Slug        string
	Strike      *float64 // nil when the market has no strike-based payoff
	ExpiryTS    int64    // unix seconds, UTC
	YesTokenID  string
	NoTokenID   string
	TickSize    float64
	MinSize     float64
	ConditionID string
}

// NewMarket validates and constructs a Market.
func NewMarket(slug string, strike *float64, expiryTS int64, yesTokenID, noTokenID string, tickSize, minSize float64, conditionID string) (*Market, error) {
	if tickSize <= 0 {
		return nil, fmt.Errorf("market %s: tick_size must be positive, got %f", slug, tickSize)
	}
	if minSize <= 0 {
		return nil, fmt.Errorf("market %s: min_size must be positive, got %f", slug, minSize)
	}
	if yesTokenID == noTokenID {
		return nil, fmt.Errorf("market %s: yes_token_id and no_token_id must differ", slug)
	}

	return &Market{
		Slug:        slug,
		Strike:      strike,
		ExpiryTS:    expiryTS,
		YesTokenID:  yesTokenID,
		NoTokenID:   noTokenID,
		TickSize:    tickSize,
		MinSize:     minSize,
		ConditionID: conditionID,
	}, nil
}

// HasStrike reports whether the market carries a strike price.
func (m *Market) HasStrike() bool {
	return m.Strike != nil
}
