package feed

import "testing"

func TestWSPriceFeed_ObserveUpdatesLatestPrice(t *testing.T) {
	f := NewWSPriceFeed("wss://example.invalid/ticker", testLogger(t))

	f.observe("BTCUSDT", 100.0, 1_000)
	f.observe("BTCUSDT", 101.0, 2_000)

	rp, ok := f.Get("BTCUSDT")
	if !ok {
		t.Fatal("expected BTCUSDT to be observed")
	}
	if rp.SpotMid != 101.0 {
		t.Errorf("expected SpotMid=101.0, got %f", rp.SpotMid)
	}
	if rp.TSMs != 2_000 {
		t.Errorf("expected TSMs=2000, got %d", rp.TSMs)
	}
}

func TestWSPriceFeed_TrailingReturnComputedFromHistory(t *testing.T) {
	f := NewWSPriceFeed("wss://example.invalid/ticker", testLogger(t))

	f.observe("ETHUSDT", 100.0, 0)
	f.observe("ETHUSDT", 110.0, 1_000)

	rp, ok := f.Get("ETHUSDT")
	if !ok {
		t.Fatal("expected ETHUSDT to be observed")
	}
	if rp.R1s <= 0 {
		t.Errorf("expected positive 1s return after price increase, got %f", rp.R1s)
	}
}

func TestWSPriceFeed_HistoryTrimmedPast30s(t *testing.T) {
	f := NewWSPriceFeed("wss://example.invalid/ticker", testLogger(t))

	f.observe("SOLUSDT", 50.0, 0)
	f.observe("SOLUSDT", 55.0, 40_000)

	f.mu.RLock()
	n := len(f.history["SOLUSDT"])
	f.mu.RUnlock()

	if n != 1 {
		t.Errorf("expected stale sample to be trimmed, got %d entries", n)
	}
}

func TestRealizedVol_ConstantPriceIsZero(t *testing.T) {
	hist := []sample{{price: 10, tsMs: 0}, {price: 10, tsMs: 1000}, {price: 10, tsMs: 2000}}
	if v := realizedVol(hist); v != 0 {
		t.Errorf("expected zero volatility for constant price series, got %f", v)
	}
}

func TestParseKrakenTicker_DecodesKnownPair(t *testing.T) {
	raw := []byte(`[336, {"c": ["97123.4", "0.015"]}, "ticker", "XBT/USDT"]`)

	symbol, price, ok := parseKrakenTicker(raw)
	if !ok {
		t.Fatal("expected ticker frame to parse")
	}
	if symbol != "BTCUSDT" {
		t.Errorf("expected symbol BTCUSDT, got %s", symbol)
	}
	if price != 97123.4 {
		t.Errorf("expected price 97123.4, got %f", price)
	}
}

func TestParseKrakenTicker_IgnoresNonTickerFrames(t *testing.T) {
	raw := []byte(`{"event": "heartbeat"}`)
	if _, _, ok := parseKrakenTicker(raw); ok {
		t.Error("expected heartbeat object frame to be rejected")
	}
}

func TestParseKrakenTicker_IgnoresUnknownPair(t *testing.T) {
	raw := []byte(`[1, {"c": ["1.0", "1"]}, "ticker", "XYZ/USDT"]`)
	if _, _, ok := parseKrakenTicker(raw); ok {
		t.Error("expected unmapped pair to be rejected")
	}
}
