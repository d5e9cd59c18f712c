package strategy

import (
	"fmt"
	"math"

	"github.com/marketengine/binary-engine/internal/domain"
	"go.uber.org/zap"
)

// LagArb takes aggressive (taker) orders when the fair price diverges from
// the market-implied price by more than a configured edge threshold.
type LagArb struct {
	EdgeThreshold float64
	MaxSlippage   float64
	DefaultSize   float64
	FeeModel      *FeeModel
	MarketType    MarketType

	logger *zap.Logger
}

// NewLagArb constructs a LagArb strategy. feeModel gates every candidate
// taker trade on its min_edge before an intent is emitted.
func NewLagArb(edgeThreshold, maxSlippage, defaultSize float64, feeModel *FeeModel, marketType MarketType, logger *zap.Logger) *LagArb {
	return &LagArb{
		EdgeThreshold: edgeThreshold,
		MaxSlippage:   maxSlippage,
		DefaultSize:   defaultSize,
		FeeModel:      feeModel,
		MarketType:    marketType,
		logger:        logger,
	}
}

// GenerateIntents returns 0 or 1 taker intents depending on whether the
// book-implied edge exceeds the configured threshold after fees.
func (l *LagArb) GenerateIntents(market *domain.Market, book *domain.BookTop, pFair float64, nowMs int64) ([]*domain.Intent, error) {
	pMarket := book.Mid()
	if pMarket == nil {
		return nil, nil
	}

	edge := pFair - *pMarket
	if math.Abs(edge) < l.EdgeThreshold {
		return nil, nil
	}

	var side domain.Side
	var price, availableSize float64
	var reason string

	if edge > 0 {
		if book.AskPx == nil || book.AskSz == nil {
			return nil, nil
		}
		side = domain.Buy
		price = *book.AskPx
		availableSize = *book.AskSz
		reason = fmt.Sprintf("lag-arb-buy-yes-edge=%.4f", edge)
	} else {
		if book.BidPx == nil || book.BidSz == nil {
			return nil, nil
		}
		side = domain.Sell
		price = *book.BidPx
		availableSize = *book.BidSz
		reason = fmt.Sprintf("lag-arb-sell-yes-edge=%.4f", edge)
	}

	spread := book.Spread()
	if spread == nil || *spread > l.MaxSlippage {
		if l.logger != nil {
			l.logger.Warn("lag-arb-spread-too-wide", zap.String("market", market.Slug))
		}
		return nil, nil
	}

	size := math.Min(l.DefaultSize, availableSize)
	if size < market.MinSize {
		size = market.MinSize
	}

	var rawEdge float64
	if side == domain.Buy {
		rawEdge = pFair - price
	} else {
		rawEdge = price - pFair
	}

	minEdge := l.FeeModel.MinEdge(size*price, price, true, l.MarketType)
	if rawEdge <= minEdge {
		if l.logger != nil {
			l.logger.Debug("lag-arb-edge-below-min-edge", zap.String("market", market.Slug), zap.Float64("raw-edge", rawEdge), zap.Float64("min-edge", minEdge))
		}
		return nil, nil
	}
	netEdge := rawEdge - minEdge

	intent, err := domain.NewIntent(market.YesTokenID, side, price, size, domain.Taker, 1000, reason, nowMs)
	if err != nil {
		return nil, fmt.Errorf("lag arb intent: %w", err)
	}

	if l.logger != nil {
		l.logger.Info("lag-arb-intent-generated",
			zap.String("market", market.Slug),
			zap.String("side", string(side)),
			zap.Float64("price", price),
			zap.Float64("size", size),
			zap.Float64("edge", edge),
			zap.Float64("net-edge", netEdge))
	}

	return []*domain.Intent{intent}, nil
}
