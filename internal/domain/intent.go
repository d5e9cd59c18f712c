package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Intent is a desired trading action emitted by a strategy for a single tick.
// Intents are ephemeral: they live only within the tick that produced them
// unless persisted as a Decision. ID correlates an intent across the risk
// gate, reconciler, and exchange log lines for the same tick.
type Intent struct {
	ID          string
	TokenID     string
	Side        Side
	Price       float64
	Size        float64
	Mode        IntentMode
	TTLMs       int64
	Reason      string
	CreatedTSMs int64
}

// NewIntent validates and constructs an Intent, assigning it a fresh
// correlation ID.
func NewIntent(tokenID string, side Side, price, size float64, mode IntentMode, ttlMs int64, reason string, createdTSMs int64) (*Intent, error) {
	if price <= 0 || price >= 1 {
		return nil, fmt.Errorf("intent price must be in (0,1), got %f", price)
	}
	if size <= 0 {
		return nil, fmt.Errorf("intent size must be positive, got %f", size)
	}

	return &Intent{
		ID:          uuid.New().String(),
		TokenID:     tokenID,
		Side:        side,
		Price:       price,
		Size:        size,
		Mode:        mode,
		TTLMs:       ttlMs,
		Reason:      reason,
		CreatedTSMs: createdTSMs,
	}, nil
}

// IsExpired reports whether the intent has exceeded its TTL relative to nowMs.
func (i *Intent) IsExpired(nowMs int64) bool {
	return nowMs-i.CreatedTSMs > i.TTLMs
}
