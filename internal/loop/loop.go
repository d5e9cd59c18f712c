// Package loop drives the tick-by-tick trading cycle: read book and
// reference prices, compute fair probabilities, route to intents, gate
// them through risk, reconcile against the live order set, and drain
// fills into the accounting layer. The feeds, exchange client and store
// are read through interfaces so the loop itself never depends on
// Postgres, the CLOB, or any one exchange transport; the registry,
// router, gate, reconciler and accountant are concrete types.
package loop

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/accountant"
	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/internal/exchange"
	"github.com/marketengine/binary-engine/internal/feed"
	"github.com/marketengine/binary-engine/internal/reconciler"
	"github.com/marketengine/binary-engine/internal/registry"
	"github.com/marketengine/binary-engine/internal/risk"
	"github.com/marketengine/binary-engine/internal/store"
	"github.com/marketengine/binary-engine/internal/strategy"
)

// Config bundles every component and tuning knob the loop needs. All
// fields are required except SymbolMapping, which defaults to deriving a
// reference symbol from each market's slug.
type Config struct {
	Registry      *registry.Registry
	PriceFeed     feed.PriceFeed
	BookFeed      feed.BookFeed
	Router        *strategy.Router
	Gate          *risk.Gate
	Reconciler    *reconciler.Reconciler
	Accountant    *accountant.Accountant
	Exchange      exchange.Client
	Store         store.Store
	Interval      time.Duration
	SymbolMapping map[string]string
	Logger        *zap.Logger
}

// Loop owns the single cooperative goroutine that runs the trading cycle
// on a fixed cadence until its context is cancelled.
type Loop struct {
	registry      *registry.Registry
	priceFeed     feed.PriceFeed
	bookFeed      feed.BookFeed
	router        *strategy.Router
	gate          *risk.Gate
	reconciler    *reconciler.Reconciler
	accountant    *accountant.Accountant
	exchange      exchange.Client
	store         store.Store
	interval      time.Duration
	symbolMapping map[string]string
	logger        *zap.Logger

	fillMu  sync.Mutex
	fillBuf []*domain.Fill

	tickLatency *latencyTracker
}

// New wires a Loop from cfg and registers the loop's fill handler with the
// exchange client so fills are buffered as they arrive off-tick and drained
// at the start of the next cycle.
func New(cfg Config) *Loop {
	l := &Loop{
		registry:      cfg.Registry,
		priceFeed:     cfg.PriceFeed,
		bookFeed:      cfg.BookFeed,
		router:        cfg.Router,
		gate:          cfg.Gate,
		reconciler:    cfg.Reconciler,
		accountant:    cfg.Accountant,
		exchange:      cfg.Exchange,
		store:         cfg.Store,
		interval:      cfg.Interval,
		symbolMapping: cfg.SymbolMapping,
		logger:        cfg.Logger,
		tickLatency:   newLatencyTracker(),
	}

	l.exchange.OnFill(l.bufferFill)

	return l
}

// bufferFill is invoked from the exchange client's own goroutine; it must
// not block, so it only appends under a mutex for the next tick to drain.
func (l *Loop) bufferFill(fill *domain.Fill) {
	l.fillMu.Lock()
	l.fillBuf = append(l.fillBuf, fill)
	l.fillMu.Unlock()
}

func (l *Loop) drainFills() []*domain.Fill {
	l.fillMu.Lock()
	defer l.fillMu.Unlock()
	if len(l.fillBuf) == 0 {
		return nil
	}
	out := l.fillBuf
	l.fillBuf = nil
	return out
}

// Run blocks, executing one tick every Interval, until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("loop-started", zap.Duration("interval", l.interval))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("loop-stopped")
			return
		case t := <-ticker.C:
			start := time.Now()
			l.tick(ctx, t.UnixMilli())
			l.tickLatency.record(time.Since(start))
		}
	}
}

// tick runs exactly one cycle of the trading loop. Errors from any single
// market or action are logged and skipped rather than aborting the tick —
// one bad market must never stall every other market's quotes.
func (l *Loop) tick(ctx context.Context, nowMs int64) {
	fills := l.drainFills()
	for _, fill := range fills {
		if _, err := l.accountant.ProcessFill(ctx, fill); err != nil {
			l.logger.Error("process-fill-failed", zap.String("fill-id", fill.FillID), zap.Error(err))
			continue
		}
		if err := l.store.SaveFill(ctx, fill); err != nil {
			l.logger.Error("save-fill-failed", zap.String("fill-id", fill.FillID), zap.Error(err))
		}
	}

	markets := l.registry.Active(nowMs / 1000)
	books := l.collectBooks(markets)
	refPrices := l.collectRefPrices(markets)
	positions := l.accountant.Positions()

	intents := l.router.GenerateAll(markets, books, refPrices, positions, l.symbolMapping, nowMs)

	openOrders, err := l.exchange.ListOpenOrders(ctx)
	if err != nil {
		l.logger.Error("list-open-orders-failed", zap.Error(err))
		return
	}

	_, _, total := l.pnlSnapshot(ctx, books, len(openOrders), nowMs)
	dailyPnL := total

	accepted := make([]*domain.Intent, 0, len(intents))
	for _, intent := range intents {
		position := positions[intent.TokenID]
		gateErr := l.gate.Check(intent, feedAge(books, refPrices, intent, nowMs), len(openOrders), position, intent.Price, dailyPnL, nowMs)

		decision := &domain.Decision{
			IntentID: intent.ID,
			TokenID:  intent.TokenID,
			Side:     intent.Side,
			Price:    intent.Price,
			Size:     intent.Size,
			Mode:     intent.Mode,
			Reason:   intent.Reason,
			Accepted: gateErr == nil,
			TSMs:     nowMs,
		}
		if gateErr != nil {
			decision.RejectionReason = gateErr.Error()
		} else {
			l.gate.Record(nowMs)
			accepted = append(accepted, intent)
		}

		if err := l.store.SaveDecision(ctx, decision); err != nil {
			l.logger.Error("save-decision-failed", zap.Error(err))
		}
	}

	placed, cancelled, err := l.reconciler.Reconcile(ctx, accepted, openOrders, nowMs)
	if err != nil {
		l.logger.Error("reconcile-failed", zap.Error(err))
	}

	if placed > 0 || cancelled > 0 {
		stats := l.tickLatency.stats()
		l.logger.Info("tick-complete",
			zap.Int("markets", len(markets)),
			zap.Int("intents", len(intents)),
			zap.Int("accepted", len(accepted)),
			zap.Int("placed", placed),
			zap.Int("cancelled", cancelled),
			zap.Duration("tick-latency-p50", stats.P50),
			zap.Duration("tick-latency-p99", stats.P99))
	}
}

// TickLatencyStats reports the rolling tick-duration percentiles measured
// off the monotonic clock, for the HTTP debug surface or ad-hoc inspection.
func (l *Loop) TickLatencyStats() LatencyStats {
	return l.tickLatency.stats()
}

// collectBooks gathers the current book top for every YES and NO token
// across active markets, keyed by token id as strategy.Router expects.
func (l *Loop) collectBooks(markets map[string]*domain.Market) map[string]*domain.BookTop {
	books := make(map[string]*domain.BookTop, len(markets)*2)
	for _, m := range markets {
		if b, ok := l.bookFeed.Get(m.YesTokenID); ok {
			books[m.YesTokenID] = b
		}
		if b, ok := l.bookFeed.Get(m.NoTokenID); ok {
			books[m.NoTokenID] = b
		}
	}
	return books
}

// collectRefPrices gathers the reference spot price for every symbol the
// active markets map to, via the configured symbol mapping or the
// router's slug-derived fallback.
func (l *Loop) collectRefPrices(markets map[string]*domain.Market) map[string]*domain.RefPrice {
	refs := make(map[string]*domain.RefPrice)
	for slug := range markets {
		symbol, ok := l.symbolMapping[slug]
		if !ok {
			symbol = strategy.SymbolFromSlug(slug)
		}
		if _, seen := refs[symbol]; seen {
			continue
		}
		if r, ok := l.priceFeed.Get(symbol); ok {
			refs[symbol] = r
		}
	}
	return refs
}

// pnlSnapshot marks every open position to the current book mid (falling
// back to average cost) and persists a portfolio risk snapshot to the store.
func (l *Loop) pnlSnapshot(ctx context.Context, books map[string]*domain.BookTop, numOpenOrders int, nowMs int64) (unrealized, realized, total float64) {
	mids := make(map[string]float64, len(books))
	for tokenID, book := range books {
		if mid := book.Mid(); mid != nil {
			mids[tokenID] = *mid
		}
	}
	realized, unrealized, total = l.accountant.TotalPnL(mids)

	positions := l.accountant.Positions()
	var totalNotional float64
	var numPositions int
	for _, pos := range positions {
		if pos.Qty == 0 {
			continue
		}
		numPositions++
		totalNotional += pos.Notional()
	}

	snapshot := &domain.RiskSnapshot{
		TSMs:          nowMs,
		TotalNotional: totalNotional,
		NumPositions:  numPositions,
		NumOpenOrders: numOpenOrders,
		DailyPnL:      total,
		RealizedPnL:   realized,
		UnrealizedPnL: unrealized,
	}
	if err := l.store.SaveSnapshot(ctx, snapshot); err != nil {
		l.logger.Error("save-snapshot-failed", zap.Error(err))
	}

	return unrealized, realized, total
}

// feedAge reports how stale, in milliseconds, the book backing intent is.
// The router already refuses to quote against a stale book or reference
// price (strategy.Router.StaleAfterMs), so this is a second, independent
// check against the risk gate's FeedStaleMs threshold; the app wiring
// gives both the same FEED_STALE_MS value.
func feedAge(books map[string]*domain.BookTop, refs map[string]*domain.RefPrice, intent *domain.Intent, nowMs int64) int64 {
	b, ok := books[intent.TokenID]
	if !ok {
		return nowMs
	}
	return nowMs - b.TSMs
}
