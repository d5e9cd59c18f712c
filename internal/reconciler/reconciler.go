// Package reconciler diffs a strategy's desired intents against the
// exchange's live open orders and emits the minimal set of place/cancel
// actions needed to converge toward that desired state.
package reconciler

import (
	"context"
	"fmt"

	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/internal/store"
	"go.uber.org/zap"
)

// ExchangeClient is the subset of the exchange adapter the reconciler
// needs to place and cancel orders. post_only is true for maker intents,
// false for taker.
type ExchangeClient interface {
	PlaceOrder(ctx context.Context, intent *domain.Intent, postOnly bool) (orderID string, err error)
	CancelOrder(ctx context.Context, orderID string) error
}

// SizeTolerance bounds how far, as a fraction of the intent's size, an
// existing maker order's size may differ and still be reused instead of
// replaced. The matching price bound is the priceTolerance given to New.
const (
	SizeTolerance = 0.10
)

// Reconciler converges live open orders toward a set of desired intents.
type Reconciler struct {
	client         ExchangeClient
	store          store.Store
	priceTolerance float64
	logger         *zap.Logger
}

// New constructs a Reconciler. priceTolerance is the maximum price
// difference (roughly one tick) within which a maker order is reused.
// st persists every placed order and status transition so fills, which
// reference orders by id, never violate the store's foreign key.
func New(client ExchangeClient, st store.Store, priceTolerance float64, logger *zap.Logger) *Reconciler {
	return &Reconciler{client: client, store: st, priceTolerance: priceTolerance, logger: logger}
}

type bucketKey struct {
	tokenID string
	side    domain.Side
}

// Reconcile places and cancels orders so that live open orders converge
// toward intents. openOrders must be the exchange-reported live set
// snapshotted at the start of the tick. Returns the number of place and
// cancel actions taken and the first error encountered, if any — actions
// already issued before an error are not rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, intents []*domain.Intent, openOrders []*domain.OpenOrder, nowMs int64) (placed, cancelled int, err error) {
	buckets := make(map[bucketKey][]*domain.OpenOrder)
	for _, o := range openOrders {
		key := bucketKey{tokenID: o.TokenID, side: o.Side}
		buckets[key] = append(buckets[key], o)
	}

	touched := make(map[bucketKey]bool)

	for _, intent := range intents {
		key := bucketKey{tokenID: intent.TokenID, side: intent.Side}
		touched[key] = true

		if intent.Mode == domain.Taker {
			orderID, placeErr := r.client.PlaceOrder(ctx, intent, false)
			if placeErr != nil {
				return placed, cancelled, fmt.Errorf("place taker order: %w", placeErr)
			}
			placed++
			r.persistPlaced(ctx, orderID, intent, nowMs)
			if r.logger != nil {
				r.logger.Info("reconciler-placed-taker", zap.String("intent-id", intent.ID), zap.String("token-id", intent.TokenID), zap.String("side", string(intent.Side)))
			}
			continue
		}

		bucket := buckets[key]
		reuseIdx := r.findReusable(bucket, intent, nowMs)
		if reuseIdx >= 0 {
			buckets[key] = append(bucket[:reuseIdx], bucket[reuseIdx+1:]...)
			continue
		}

		for _, stale := range bucket {
			if cancelErr := r.client.CancelOrder(ctx, stale.OrderID); cancelErr != nil {
				return placed, cancelled, fmt.Errorf("cancel stale maker order %s: %w", stale.OrderID, cancelErr)
			}
			cancelled++
			r.persistCancelled(ctx, stale)
		}
		buckets[key] = nil

		orderID, placeErr := r.client.PlaceOrder(ctx, intent, true)
		if placeErr != nil {
			return placed, cancelled, fmt.Errorf("place maker order: %w", placeErr)
		}
		placed++
		r.persistPlaced(ctx, orderID, intent, nowMs)
		if r.logger != nil {
			r.logger.Info("reconciler-placed-maker", zap.String("intent-id", intent.ID), zap.String("token-id", intent.TokenID), zap.String("side", string(intent.Side)), zap.Float64("price", intent.Price))
		}
	}

	for key, bucket := range buckets {
		if touched[key] {
			continue
		}
		for _, orphan := range bucket {
			if cancelErr := r.client.CancelOrder(ctx, orphan.OrderID); cancelErr != nil {
				return placed, cancelled, fmt.Errorf("cancel orphaned order %s: %w", orphan.OrderID, cancelErr)
			}
			cancelled++
			r.persistCancelled(ctx, orphan)
			if r.logger != nil {
				r.logger.Info("reconciler-cancelled-orphan", zap.String("order-id", orphan.OrderID))
			}
		}
	}

	return placed, cancelled, nil
}

// persistPlaced records a newly placed order as the durable source of
// truth for its lifecycle, so a later fill referencing orderID never
// violates the store's foreign key. A persistence failure is logged, not
// propagated — the order is already live on the exchange.
func (r *Reconciler) persistPlaced(ctx context.Context, orderID string, intent *domain.Intent, nowMs int64) {
	if r.store == nil {
		return
	}
	order := &domain.OpenOrder{
		OrderID:     orderID,
		TokenID:     intent.TokenID,
		Side:        intent.Side,
		Price:       intent.Price,
		Size:        intent.Size,
		CreatedTSMs: nowMs,
	}
	if err := r.store.SaveOrder(ctx, order, domain.OrderOpen, intent.Reason); err != nil && r.logger != nil {
		r.logger.Error("persist-placed-order-failed", zap.String("order-id", orderID), zap.Error(err))
	}
}

// persistCancelled transitions a cancelled order's durable status.
func (r *Reconciler) persistCancelled(ctx context.Context, order *domain.OpenOrder) {
	if r.store == nil {
		return
	}
	if err := r.store.UpdateOrderStatus(ctx, order.OrderID, domain.OrderCancelled, order.FilledSize); err != nil && r.logger != nil {
		r.logger.Error("persist-cancelled-order-failed", zap.String("order-id", order.OrderID), zap.Error(err))
	}
}

// findReusable returns the index of the first order in bucket that
// satisfies the intent's price, size and age tolerances, or -1.
func (r *Reconciler) findReusable(bucket []*domain.OpenOrder, intent *domain.Intent, nowMs int64) int {
	for i, o := range bucket {
		priceDiff := o.Price - intent.Price
		if priceDiff < 0 {
			priceDiff = -priceDiff
		}
		if priceDiff > r.priceTolerance {
			continue
		}

		remaining := o.RemainingSize()
		lower := intent.Size * (1 - SizeTolerance)
		upper := intent.Size * (1 + SizeTolerance)
		if remaining < lower || remaining > upper {
			continue
		}

		if o.AgeMs(nowMs) > intent.TTLMs {
			continue
		}

		return i
	}
	return -1
}
