// Package feed runs the independent producers that publish reference spot
// prices and order book tops into keyed maps the core loop reads under a
// mutex. Each worker owns its own map and reconnects on its own schedule;
// nothing here touches positions, orders, or decisions.
package feed

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
	wsutil "github.com/marketengine/binary-engine/pkg/websocket"
)

// PriceFeed is the consumed interface the router reads reference prices
// through: subscribe to a set of canonical symbols, then poll the latest
// snapshot for one.
type PriceFeed interface {
	Start() error
	Subscribe(symbols []string) error
	Get(symbol string) (*domain.RefPrice, bool)
	Close() error
}

// symbolMap translates canonical symbols (BTCUSDT) to Kraken's pair
// notation (XBT/USDT) and back.
var symbolMap = map[string]string{
	"BTCUSDT":   "XBT/USDT",
	"ETHUSDT":   "ETH/USDT",
	"SOLUSDT":   "SOL/USDT",
	"MATICUSDT": "MATIC/USDT",
	"ADAUSDT":   "ADA/USDT",
	"DOGEUSDT":  "DOGE/USDT",
	"DOTUSDT":   "DOT/USDT",
	"AVAXUSDT":  "AVAX/USDT",
	"LINKUSDT":  "LINK/USDT",
	"UNIUSDT":   "UNI/USDT",
}

var pairToSymbol = func() map[string]string {
	m := make(map[string]string, len(symbolMap))
	for sym, pair := range symbolMap {
		m[pair] = sym
	}
	return m
}()

// sample is one observation kept for short-horizon return computation.
type sample struct {
	price float64
	tsMs  int64
}

// WSPriceFeed streams ticker messages from a single vendor websocket and
// maintains a symbol -> RefPrice map, computing trailing returns/volatility
// from a small ring of recent samples per symbol.
type WSPriceFeed struct {
	url    string
	logger *zap.Logger

	mu      sync.RWMutex
	prices  map[string]*domain.RefPrice
	history map[string][]sample

	conn       *websocket.Conn
	reconnect  *wsutil.ReconnectManager
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	subscribed map[string]bool
}

// NewWSPriceFeed constructs a price feed against a single vendor URL.
// Reconnection uses exponential backoff from 1s up to 60s, per the feed
// worker contract.
func NewWSPriceFeed(url string, logger *zap.Logger) *WSPriceFeed {
	ctx, cancel := context.WithCancel(context.Background())
	return &WSPriceFeed{
		url:     url,
		logger:  logger,
		prices:  make(map[string]*domain.RefPrice),
		history: make(map[string][]sample),
		reconnect: wsutil.NewReconnectManager(wsutil.ReconnectConfig{
			InitialDelay:      1 * time.Second,
			MaxDelay:          60 * time.Second,
			BackoffMultiplier: 2.0,
			JitterPercent:     0.2,
		}, logger),
		ctx:        ctx,
		cancel:     cancel,
		subscribed: make(map[string]bool),
	}
}

// Start dials the feed and begins reading. Reconnects happen in the
// background; Start itself only fails on the initial dial.
func (f *WSPriceFeed) Start() error {
	if err := f.connect(f.ctx); err != nil {
		return fmt.Errorf("initial connect: %w", err)
	}
	f.wg.Add(1)
	go f.readLoop()
	return nil
}

func (f *WSPriceFeed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.logger.Info("price-feed-connected", zap.String("url", f.url))
	return nil
}

// Subscribe sends a Kraken ticker subscription for the given canonical
// symbols, mapping each to its Kraken pair notation first. Symbols with no
// known mapping are tracked for resubscription but not sent.
func (f *WSPriceFeed) Subscribe(symbols []string) error {
	f.mu.Lock()
	pairs := make([]string, 0, len(symbols))
	for _, s := range symbols {
		f.subscribed[s] = true
		if pair, ok := symbolMap[s]; ok {
			pairs = append(pairs, pair)
		}
	}
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("price feed not connected")
	}
	if len(pairs) == 0 {
		return nil
	}

	msg := map[string]interface{}{
		"event":        "subscribe",
		"pair":         pairs,
		"subscription": map[string]string{"name": "ticker"},
	}
	return conn.WriteJSON(msg)
}

// Get returns the latest RefPrice for symbol, if one has been observed.
func (f *WSPriceFeed) Get(symbol string) (*domain.RefPrice, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rp, ok := f.prices[symbol]
	return rp, ok
}

func (f *WSPriceFeed) readLoop() {
	defer f.wg.Done()
	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()
		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			f.logger.Warn("price-feed-read-error", zap.Error(err))
			f.handleDisconnect()
			continue
		}

		symbol, price, ok := parseKrakenTicker(raw)
		if !ok {
			continue
		}
		f.observe(symbol, price, time.Now().UnixMilli())
	}
}

// parseKrakenTicker decodes a Kraken websocket ticker push, which is framed
// as a JSON array [channelID, tickerData, "ticker", pair] rather than an
// object. Non-ticker messages (subscription acks, heartbeats) are ignored.
func parseKrakenTicker(raw []byte) (symbol string, price float64, ok bool) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 4 {
		return "", 0, false
	}

	var channelName string
	if err := json.Unmarshal(frame[2], &channelName); err != nil || channelName != "ticker" {
		return "", 0, false
	}

	var pair string
	if err := json.Unmarshal(frame[3], &pair); err != nil {
		return "", 0, false
	}
	sym, known := pairToSymbol[pair]
	if !known {
		return "", 0, false
	}

	var ticker struct {
		Close []string `json:"c"`
	}
	if err := json.Unmarshal(frame[1], &ticker); err != nil || len(ticker.Close) == 0 {
		return "", 0, false
	}

	var px float64
	if _, err := fmt.Sscanf(ticker.Close[0], "%f", &px); err != nil {
		return "", 0, false
	}

	return sym, px, true
}

func (f *WSPriceFeed) handleDisconnect() {
	f.mu.Lock()
	f.conn = nil
	f.mu.Unlock()

	err := f.reconnect.Reconnect(f.ctx, f.connect)
	if err != nil {
		return
	}

	f.mu.RLock()
	symbols := make([]string, 0, len(f.subscribed))
	for s := range f.subscribed {
		symbols = append(symbols, s)
	}
	f.mu.RUnlock()
	if len(symbols) > 0 {
		if err := f.Subscribe(symbols); err != nil {
			f.logger.Warn("price-feed-resubscribe-failed", zap.Error(err))
		}
	}
}

// observe records a new price sample and recomputes trailing returns and
// 30s realized volatility from the retained ring of samples.
func (f *WSPriceFeed) observe(symbol string, price float64, tsMs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hist := append(f.history[symbol], sample{price: price, tsMs: tsMs})
	cutoff := tsMs - 30_000
	trimmed := hist[:0]
	for _, s := range hist {
		if s.tsMs >= cutoff {
			trimmed = append(trimmed, s)
		}
	}
	f.history[symbol] = trimmed

	r1s := trailingReturn(trimmed, tsMs-1_000, price)
	r5s := trailingReturn(trimmed, tsMs-5_000, price)
	vol30s := realizedVol(trimmed)

	f.prices[symbol] = &domain.RefPrice{
		Symbol:  symbol,
		SpotMid: price,
		R1s:     r1s,
		R5s:     r5s,
		Vol30s:  vol30s,
		TSMs:    tsMs,
	}
}

func trailingReturn(hist []sample, sinceMs int64, current float64) float64 {
	var ref *sample
	for i := range hist {
		if hist[i].tsMs <= sinceMs {
			ref = &hist[i]
		}
	}
	if ref == nil || ref.price == 0 {
		return 0
	}
	return (current - ref.price) / ref.price
}

func realizedVol(hist []sample) float64 {
	if len(hist) < 2 {
		return 0
	}
	var sumSq float64
	n := 0
	for i := 1; i < len(hist); i++ {
		if hist[i-1].price == 0 {
			continue
		}
		r := (hist[i].price - hist[i-1].price) / hist[i-1].price
		sumSq += r * r
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n))
}

// Close tears down the connection and stops the read loop.
func (f *WSPriceFeed) Close() error {
	f.cancel()
	f.mu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.Unlock()
	f.wg.Wait()
	return nil
}
