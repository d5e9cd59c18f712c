package strategy

import (
	"strings"

	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/internal/fairprice"
	"go.uber.org/zap"
)

// Router combines lag arbitrage (taker) and market making (maker) into a
// single per-market decision: a strong taker edge always preempts maker
// quotes, so a market never carries contradictory intents.
type Router struct {
	FairPrice    *fairprice.Model
	LagArb       *LagArb
	MarketMaker  *MarketMaker
	Toxicity     *ToxicityDetector
	StaleAfterMs int64

	logger *zap.Logger
}

// NewRouter constructs a Router from its component strategies. staleAfterMs
// bounds how old a book or reference price may be before the router
// refuses to quote against it — it should match the risk gate's own
// feed-staleness threshold so the two layers never disagree.
func NewRouter(fp *fairprice.Model, lagArb *LagArb, marketMaker *MarketMaker, toxicity *ToxicityDetector, staleAfterMs int64, logger *zap.Logger) *Router {
	return &Router{
		FairPrice:    fp,
		LagArb:       lagArb,
		MarketMaker:  marketMaker,
		Toxicity:     toxicity,
		StaleAfterMs: staleAfterMs,
		logger:       logger,
	}
}

// GenerateIntents produces intents for a single market: either one taker
// intent (lag arb preempts) or a bid/ask pair of maker intents, or none
// when inputs are stale, missing, or the regime looks toxic.
func (r *Router) GenerateIntents(market *domain.Market, book *domain.BookTop, ref *domain.RefPrice, positions map[string]*domain.Position, nowMs int64) ([]*domain.Intent, error) {
	if book.IsStale(nowMs, r.StaleAfterMs) {
		if r.logger != nil {
			r.logger.Warn("book-stale", zap.String("market", market.Slug))
		}
		return nil, nil
	}
	if ref.IsStale(nowMs, r.StaleAfterMs) {
		if r.logger != nil {
			r.logger.Warn("ref-price-stale", zap.String("symbol", ref.Symbol))
		}
		return nil, nil
	}

	nowS := nowMs / 1000
	pFair, err := r.FairPrice.FairProb(market, ref, nowS)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("fair-price-unavailable", zap.String("market", market.Slug), zap.Error(err))
		}
		return nil, nil
	}

	takerIntents, err := r.LagArb.GenerateIntents(market, book, pFair, nowMs)
	if err != nil {
		return nil, err
	}
	if len(takerIntents) > 0 {
		if r.logger != nil {
			r.logger.Info("taker-edge-detected", zap.String("market", market.Slug), zap.Int("intents", len(takerIntents)))
		}
		return takerIntents, nil
	}

	if r.Toxicity != nil && r.Toxicity.IsToxic(book, ref) {
		if r.logger != nil {
			r.logger.Warn("toxic-regime-skipping-maker-quotes", zap.String("market", market.Slug))
		}
		return nil, nil
	}

	return r.MarketMaker.GenerateIntents(market, pFair, positions, nowMs)
}

// GenerateAll produces intents across every active market, looking up the
// book and reference price for each via the supplied maps and an optional
// slug-to-symbol override.
func (r *Router) GenerateAll(
	markets map[string]*domain.Market,
	books map[string]*domain.BookTop,
	refPrices map[string]*domain.RefPrice,
	positions map[string]*domain.Position,
	symbolMapping map[string]string,
	nowMs int64,
) []*domain.Intent {
	var all []*domain.Intent

	for slug, market := range markets {
		book, ok := books[market.YesTokenID]
		if !ok {
			continue
		}

		symbol, ok := symbolMapping[slug]
		if !ok {
			symbol = SymbolFromSlug(slug)
		}

		ref, ok := refPrices[symbol]
		if !ok {
			continue
		}

		intents, err := r.GenerateIntents(market, book, ref, positions, nowMs)
		if err != nil {
			if r.logger != nil {
				r.logger.Error("generate-intents-failed", zap.String("market", slug), zap.Error(err))
			}
			continue
		}

		all = append(all, intents...)
	}

	if r.logger != nil {
		r.logger.Info("generated-intents", zap.Int("count", len(all)), zap.Int("markets", len(markets)))
	}

	return all
}

// SymbolFromSlug extracts a reference-price symbol from a market slug,
// e.g. "btc-above-100k-by-march-2026" -> "BTCUSDT".
func SymbolFromSlug(slug string) string {
	lower := strings.ToLower(slug)

	switch {
	case strings.Contains(lower, "btc"):
		return "BTCUSDT"
	case strings.Contains(lower, "eth"):
		return "ETHUSDT"
	case strings.Contains(lower, "sol"):
		return "SOLUSDT"
	default:
		return "UNKNOWN"
	}
}
