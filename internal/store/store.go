// Package store persists orders, fills, positions and decisions — the
// single source of truth the engine rehydrates from on restart.
package store

import (
	"context"

	"github.com/marketengine/binary-engine/internal/domain"
)

// Store is the relational persistence surface every component writes
// through. The reconciler intentionally does not read open orders back
// from it — it trusts only the exchange-reported live set each tick.
type Store interface {
	SaveOrder(ctx context.Context, order *domain.OpenOrder, status domain.OrderStatus, reason string) error
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, filledSize float64) error

	SaveFill(ctx context.Context, fill *domain.Fill) error

	SavePosition(ctx context.Context, position *domain.Position) error
	LoadPositions(ctx context.Context) (map[string]*domain.Position, error)

	SaveDecision(ctx context.Context, decision *domain.Decision) error
	RecentDecisions(ctx context.Context, limit int) ([]*domain.Decision, error)

	SaveSnapshot(ctx context.Context, snapshot *domain.RiskSnapshot) error

	Close() error
}
