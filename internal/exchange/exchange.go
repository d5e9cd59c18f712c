// Package exchange adapts the CLOB trading API (and a DRY_RUN simulation of
// it) to the narrow surface the reconciler and accounting loop consume:
// place/cancel orders, list what is open, and receive fills.
package exchange

import (
	"context"

	"github.com/marketengine/binary-engine/internal/domain"
)

// Client is the consumed exchange interface. post_only is true for maker
// intents and false for taker. FillHandler is invoked from the client's own
// goroutine whenever a fill is observed; it must not block.
type Client interface {
	PlaceOrder(ctx context.Context, intent *domain.Intent, postOnly bool) (orderID string, err error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAllOrders(ctx context.Context) (count int, err error)
	ListOpenOrders(ctx context.Context) ([]*domain.OpenOrder, error)
	OnFill(handler FillHandler)
	Close() error
}

// FillHandler receives fills as they are reported by the exchange.
type FillHandler func(fill *domain.Fill)
