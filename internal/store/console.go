package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
)

// Console implements Store by pretty-printing every write to stdout and
// keeping an in-memory cache for reads. Useful for DRY_RUN operation
// without a database dependency.
type Console struct {
	logger    *zap.Logger
	positions map[string]*domain.Position
	decisions []*domain.Decision
}

// NewConsole creates a new console-backed Store.
func NewConsole(logger *zap.Logger) *Console {
	logger.Info("console-store-initialized")
	return &Console{
		logger:    logger,
		positions: make(map[string]*domain.Position),
	}
}

// SaveOrder prints the order to stdout.
func (c *Console) SaveOrder(_ context.Context, order *domain.OpenOrder, status domain.OrderStatus, reason string) error {
	fmt.Printf("[order] %s %s %s price=%.4f size=%.2f status=%s reason=%q\n",
		order.OrderID, order.TokenID, order.Side, order.Price, order.Size, status, reason)
	return nil
}

// UpdateOrderStatus prints the status transition to stdout.
func (c *Console) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus, filledSize float64) error {
	fmt.Printf("[order-status] %s -> %s filled=%.2f\n", orderID, status, filledSize)
	return nil
}

// SaveFill prints the fill to stdout.
func (c *Console) SaveFill(_ context.Context, fill *domain.Fill) error {
	fmt.Printf("[fill] %s %s %s price=%.4f size=%.2f fee=%.4f\n",
		fill.FillID, fill.TokenID, fill.Side, fill.Price, fill.Size, fill.Fee)
	return nil
}

// SavePosition caches the position and prints it to stdout.
func (c *Console) SavePosition(_ context.Context, position *domain.Position) error {
	cp := *position
	c.positions[position.TokenID] = &cp
	fmt.Printf("[position] %s qty=%.2f avg_cost=%.4f realized_pnl=%.2f\n",
		position.TokenID, position.Qty, position.AvgCost, position.RealizedPnL)
	return nil
}

// LoadPositions returns the in-memory cache (empty on a fresh process).
func (c *Console) LoadPositions(_ context.Context) (map[string]*domain.Position, error) {
	out := make(map[string]*domain.Position, len(c.positions))
	for k, v := range c.positions {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

// SaveDecision caches and prints the decision.
func (c *Console) SaveDecision(_ context.Context, decision *domain.Decision) error {
	c.decisions = append(c.decisions, decision)
	outcome := "accepted"
	if !decision.Accepted {
		outcome = "rejected: " + decision.RejectionReason
	}
	fmt.Printf("[decision] %s %s price=%.4f size=%.2f mode=%s -> %s\n",
		decision.TokenID, decision.Side, decision.Price, decision.Size, decision.Mode, outcome)
	return nil
}

// RecentDecisions returns up to limit decisions, most recent first.
func (c *Console) RecentDecisions(_ context.Context, limit int) ([]*domain.Decision, error) {
	n := len(c.decisions)
	if limit > n {
		limit = n
	}
	out := make([]*domain.Decision, limit)
	for i := 0; i < limit; i++ {
		out[i] = c.decisions[n-1-i]
	}
	return out, nil
}

// SaveSnapshot prints the snapshot to stdout.
func (c *Console) SaveSnapshot(_ context.Context, snapshot *domain.RiskSnapshot) error {
	fmt.Printf("[snapshot] ts=%d notional=%.2f positions=%d open_orders=%d daily_pnl=%.2f realized=%.2f unrealized=%.2f\n",
		snapshot.TSMs, snapshot.TotalNotional, snapshot.NumPositions, snapshot.NumOpenOrders,
		snapshot.DailyPnL, snapshot.RealizedPnL, snapshot.UnrealizedPnL)
	return nil
}

// Close is a no-op for console storage.
func (c *Console) Close() error {
	c.logger.Info("closing-console-store")
	return nil
}
