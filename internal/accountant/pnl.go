// Package accountant tracks positions on an average-cost basis and derives
// realised/unrealised P&L from the fill stream.
package accountant

import (
	"context"
	"fmt"

	"github.com/marketengine/binary-engine/internal/domain"
	"go.uber.org/zap"
)

// PositionStore persists positions. The accountant is the only writer;
// the reconciler and router only read through it via Positions().
type PositionStore interface {
	SavePosition(ctx context.Context, position *domain.Position) error
	LoadPositions(ctx context.Context) (map[string]*domain.Position, error)
}

// Accountant maintains an in-memory cache of positions, rehydrated from
// the store at startup, and updates it as fills are processed.
type Accountant struct {
	store     PositionStore
	positions map[string]*domain.Position

	logger *zap.Logger
}

// New constructs an Accountant and rehydrates its position cache from store.
func New(ctx context.Context, store PositionStore, logger *zap.Logger) (*Accountant, error) {
	positions, err := store.LoadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	if positions == nil {
		positions = make(map[string]*domain.Position)
	}

	if logger != nil {
		logger.Info("positions-loaded", zap.Int("count", len(positions)))
	}

	return &Accountant{store: store, positions: positions, logger: logger}, nil
}

// Position returns the cached position for tokenID, creating an empty one
// if none exists yet.
func (a *Accountant) Position(tokenID string) *domain.Position {
	if p, ok := a.positions[tokenID]; ok {
		return p
	}
	p := &domain.Position{TokenID: tokenID}
	a.positions[tokenID] = p
	return p
}

// Positions returns the full position cache, keyed by token id. Callers
// must not mutate the returned map or its values.
func (a *Accountant) Positions() map[string]*domain.Position {
	return a.positions
}

// ProcessFill applies a fill to the relevant position using average-cost
// accounting, persists the updated position, and returns the realised P&L
// (net of the fill's fee) attributable to this fill.
func (a *Accountant) ProcessFill(ctx context.Context, fill *domain.Fill) (float64, error) {
	position := a.Position(fill.TokenID)

	var realized float64

	if fill.Side == domain.Buy {
		if position.Qty < 0 {
			closeQty := min(-position.Qty, fill.Size)
			realized = closeQty * (position.AvgCost - fill.Price)
		}

		newQty := position.Qty + fill.Size
		if newQty > 0 {
			if position.Qty <= 0 {
				position.AvgCost = fill.Price
			} else {
				totalCost := position.Qty*position.AvgCost + fill.Size*fill.Price
				position.AvgCost = totalCost / newQty
			}
		}
		position.Qty = newQty
	} else {
		if position.Qty > 0 {
			closeQty := min(position.Qty, fill.Size)
			realized = closeQty * (fill.Price - position.AvgCost)
		}

		newQty := position.Qty - fill.Size
		if newQty < 0 {
			if position.Qty >= 0 {
				position.AvgCost = fill.Price
			} else {
				totalCost := -position.Qty*position.AvgCost + fill.Size*fill.Price
				position.AvgCost = totalCost / -newQty
			}
		}
		position.Qty = newQty
	}

	realized -= fill.Fee
	position.RealizedPnL += realized

	if err := a.store.SavePosition(ctx, position); err != nil {
		return realized, fmt.Errorf("save position: %w", err)
	}

	if a.logger != nil {
		a.logger.Info("fill-processed",
			zap.String("token-id", fill.TokenID),
			zap.String("side", string(fill.Side)),
			zap.Float64("price", fill.Price),
			zap.Float64("size", fill.Size),
			zap.Float64("new-qty", position.Qty),
			zap.Float64("realized-pnl", realized))
	}

	return realized, nil
}

// UnrealizedPnL sums unrealized P&L across all positions, marking each to
// currentMids (falling back to the position's average cost when a mid is
// unavailable).
func (a *Accountant) UnrealizedPnL(currentMids map[string]float64) float64 {
	var total float64
	for tokenID, position := range a.positions {
		if position.Qty == 0 {
			continue
		}
		mid, ok := currentMids[tokenID]
		if !ok {
			mid = position.AvgCost
		}
		total += position.UnrealizedPnL(mid)
	}
	return total
}

// TotalPnL returns realised, unrealised and their sum across all positions.
func (a *Accountant) TotalPnL(currentMids map[string]float64) (realized, unrealized, total float64) {
	for _, position := range a.positions {
		realized += position.RealizedPnL
	}
	unrealized = a.UnrealizedPnL(currentMids)
	return realized, unrealized, realized + unrealized
}
