package exchange

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
)

// DryRun simulates the exchange entirely in memory: PlaceOrder always
// succeeds, and when a fill handler is registered the order immediately
// fills at the requested price (without one it stays open), matching the
// "paper" execution mode the original bot supported alongside live trading.
type DryRun struct {
	logger *zap.Logger
	nextID atomic.Int64

	mu      sync.Mutex
	open    map[string]*domain.OpenOrder
	handler FillHandler
}

// NewDryRun constructs a simulated exchange client.
func NewDryRun(logger *zap.Logger) *DryRun {
	return &DryRun{
		logger: logger,
		open:   make(map[string]*domain.OpenOrder),
	}
}

// PlaceOrder records the order as open and, since there is no real book to
// rest on, immediately reports it filled through the registered handler.
func (d *DryRun) PlaceOrder(ctx context.Context, intent *domain.Intent, postOnly bool) (string, error) {
	id := fmt.Sprintf("dryrun-%d", d.nextID.Add(1))

	order := &domain.OpenOrder{
		OrderID:     id,
		TokenID:     intent.TokenID,
		Side:        intent.Side,
		Price:       intent.Price,
		Size:        intent.Size,
		CreatedTSMs: intent.CreatedTSMs,
	}

	d.mu.Lock()
	d.open[id] = order
	handler := d.handler
	d.mu.Unlock()

	d.logger.Info("dry-run-order-placed",
		zap.String("order_id", id),
		zap.String("token_id", intent.TokenID),
		zap.String("side", string(intent.Side)),
		zap.Float64("price", intent.Price),
		zap.Float64("size", intent.Size),
		zap.Bool("post_only", postOnly))

	if handler != nil {
		handler(&domain.Fill{
			FillID:  "dryrun-fill-" + id,
			OrderID: id,
			TokenID: intent.TokenID,
			Side:    intent.Side,
			Price:   intent.Price,
			Size:    intent.Size,
			Fee:     0,
			TSMs:    intent.CreatedTSMs,
		})

		d.mu.Lock()
		delete(d.open, id)
		d.mu.Unlock()
	}

	return id, nil
}

// CancelOrder removes the order from the simulated open set.
func (d *DryRun) CancelOrder(ctx context.Context, orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.open[orderID]; !ok {
		return fmt.Errorf("dry run: unknown order %s", orderID)
	}
	delete(d.open, orderID)
	return nil
}

// CancelAllOrders clears every simulated open order.
func (d *DryRun) CancelAllOrders(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := len(d.open)
	d.open = make(map[string]*domain.OpenOrder)
	return count, nil
}

// ListOpenOrders returns the current simulated open order set.
func (d *DryRun) ListOpenOrders(ctx context.Context) ([]*domain.OpenOrder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*domain.OpenOrder, 0, len(d.open))
	for _, o := range d.open {
		out = append(out, o)
	}
	return out, nil
}

// OnFill registers the fill callback used to simulate instant fills.
func (d *DryRun) OnFill(handler FillHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

// Close is a no-op for the simulated client.
func (d *DryRun) Close() error {
	return nil
}
