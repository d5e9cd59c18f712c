package strategy

import (
	"fmt"

	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/internal/fairprice"
	"go.uber.org/zap"
)

// MarketMaker quotes a bid and ask around the fair price, skewed away from
// held inventory.
type MarketMaker struct {
	HalfSpread          float64
	DefaultSize         float64
	QuoteTTLMs          int64
	InventorySkewFactor float64
	MaxInventory        float64
	FeeModel            *FeeModel
	MarketType          MarketType

	logger *zap.Logger
}

// NewMarketMaker constructs a MarketMaker strategy. feeModel gates each
// side of the quote independently on its min_edge before it is emitted.
func NewMarketMaker(halfSpread, defaultSize float64, quoteTTLMs int64, skewFactor, maxInventory float64, feeModel *FeeModel, marketType MarketType, logger *zap.Logger) *MarketMaker {
	return &MarketMaker{
		HalfSpread:          halfSpread,
		DefaultSize:         defaultSize,
		QuoteTTLMs:          quoteTTLMs,
		InventorySkewFactor: skewFactor,
		MaxInventory:        maxInventory,
		FeeModel:            feeModel,
		MarketType:          marketType,
		logger:              logger,
	}
}

// GenerateIntents returns a bid and ask maker intent around the fair price,
// skewed by the held position in market's YES token.
func (m *MarketMaker) GenerateIntents(market *domain.Market, pFair float64, positions map[string]*domain.Position, nowMs int64) ([]*domain.Intent, error) {
	position := positions[market.YesTokenID]
	qty := 0.0
	if position != nil {
		qty = position.Qty
	}

	skew := fairprice.InventorySkew(qty, m.MaxInventory, m.InventorySkewFactor)
	pCenter := pFair + skew

	bidPrice := fairprice.ClampToTick(pCenter-m.HalfSpread, market.TickSize)
	askPrice := fairprice.ClampToTick(pCenter+m.HalfSpread, market.TickSize)

	if m.logger != nil {
		m.logger.Debug("market-maker-quote",
			zap.String("market", market.Slug),
			zap.Float64("p-fair", pFair),
			zap.Float64("inventory", qty),
			zap.Float64("skew", skew),
			zap.Float64("bid", bidPrice),
			zap.Float64("ask", askPrice))
	}

	bidReason := fmt.Sprintf("mm-bid-pfair=%.4f-skew=%.6f", pFair, skew)
	askReason := fmt.Sprintf("mm-ask-pfair=%.4f-skew=%.6f", pFair, skew)

	var intents []*domain.Intent

	bidEdge := pFair - bidPrice
	bidMinEdge := m.FeeModel.MinEdge(m.DefaultSize*bidPrice, bidPrice, false, m.MarketType)
	if bidEdge > bidMinEdge {
		bidIntent, err := domain.NewIntent(market.YesTokenID, domain.Buy, bidPrice, m.DefaultSize, domain.Maker, m.QuoteTTLMs, bidReason, nowMs)
		if err != nil {
			return nil, fmt.Errorf("market maker bid intent: %w", err)
		}
		intents = append(intents, bidIntent)
	} else if m.logger != nil {
		m.logger.Debug("market-maker-bid-below-min-edge", zap.String("market", market.Slug), zap.Float64("bid-edge", bidEdge), zap.Float64("min-edge", bidMinEdge))
	}

	askEdge := askPrice - pFair
	askMinEdge := m.FeeModel.MinEdge(m.DefaultSize*askPrice, askPrice, false, m.MarketType)
	if askEdge > askMinEdge {
		askIntent, err := domain.NewIntent(market.YesTokenID, domain.Sell, askPrice, m.DefaultSize, domain.Maker, m.QuoteTTLMs, askReason, nowMs)
		if err != nil {
			return nil, fmt.Errorf("market maker ask intent: %w", err)
		}
		intents = append(intents, askIntent)
	} else if m.logger != nil {
		m.logger.Debug("market-maker-ask-below-min-edge", zap.String("market", market.Slug), zap.Float64("ask-edge", askEdge), zap.Float64("min-edge", askMinEdge))
	}

	return intents, nil
}
