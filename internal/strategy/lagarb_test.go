package strategy

import (
	"testing"

	"github.com/marketengine/binary-engine/internal/domain"
)

func f64(v float64) *float64 { return &v }

func zeroFeeModel() *FeeModel { return NewFeeModel(0, 0, 0) }

func newTestMarket(t *testing.T) *domain.Market {
	t.Helper()
	m, err := domain.NewMarket("btc-above-100k", f64(100000), 2000000000, "yes-token", "no-token", 0.01, 1, "cond-1")
	if err != nil {
		t.Fatalf("NewMarket: %v", err)
	}
	return m
}

func TestLagArb_NoEdge_NoIntent(t *testing.T) {
	l := NewLagArb(0.03, 0.02, 10, zeroFeeModel(), MarketTypeDefault, nil)
	market := newTestMarket(t)
	book := &domain.BookTop{TokenID: "yes-token", BidPx: f64(0.50), BidSz: f64(100), AskPx: f64(0.505), AskSz: f64(100), TSMs: 0}

	intents, err := l.GenerateIntents(market, book, 0.51, 1000)
	if err != nil {
		t.Fatalf("GenerateIntents: %v", err)
	}
	if len(intents) != 0 {
		t.Fatalf("expected no intents below edge threshold, got %d", len(intents))
	}
}

func TestLagArb_PositiveEdge_BuysYes(t *testing.T) {
	l := NewLagArb(0.03, 0.05, 10, zeroFeeModel(), MarketTypeDefault, nil)
	market := newTestMarket(t)
	book := &domain.BookTop{TokenID: "yes-token", BidPx: f64(0.50), BidSz: f64(100), AskPx: f64(0.51), AskSz: f64(100), TSMs: 0}

	// p_fair well above market mid (~0.505) by more than edge threshold.
	intents, err := l.GenerateIntents(market, book, 0.60, 1000)
	if err != nil {
		t.Fatalf("GenerateIntents: %v", err)
	}
	if len(intents) != 1 {
		t.Fatalf("expected exactly one taker intent, got %d", len(intents))
	}
	if intents[0].Side != domain.Buy {
		t.Errorf("expected BUY side, got %s", intents[0].Side)
	}
	if intents[0].Mode != domain.Taker {
		t.Errorf("expected TAKER mode, got %s", intents[0].Mode)
	}
}

func TestLagArb_NegativeEdge_SellsYes(t *testing.T) {
	l := NewLagArb(0.03, 0.05, 10, zeroFeeModel(), MarketTypeDefault, nil)
	market := newTestMarket(t)
	book := &domain.BookTop{TokenID: "yes-token", BidPx: f64(0.50), BidSz: f64(100), AskPx: f64(0.51), AskSz: f64(100), TSMs: 0}

	intents, err := l.GenerateIntents(market, book, 0.40, 1000)
	if err != nil {
		t.Fatalf("GenerateIntents: %v", err)
	}
	if len(intents) != 1 {
		t.Fatalf("expected exactly one taker intent, got %d", len(intents))
	}
	if intents[0].Side != domain.Sell {
		t.Errorf("expected SELL side, got %s", intents[0].Side)
	}
}

func TestLagArb_WideSpread_NoIntent(t *testing.T) {
	l := NewLagArb(0.03, 0.02, 10, zeroFeeModel(), MarketTypeDefault, nil)
	market := newTestMarket(t)
	book := &domain.BookTop{TokenID: "yes-token", BidPx: f64(0.40), BidSz: f64(100), AskPx: f64(0.60), AskSz: f64(100), TSMs: 0}

	intents, err := l.GenerateIntents(market, book, 0.70, 1000)
	if err != nil {
		t.Fatalf("GenerateIntents: %v", err)
	}
	if len(intents) != 0 {
		t.Fatalf("expected no intent when spread exceeds max slippage, got %d", len(intents))
	}
}
