package feed

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/pkg/types"
	wsutil "github.com/marketengine/binary-engine/pkg/websocket"
)

// BookFeed is the consumed interface the router reads order book tops
// through: subscribe to a set of token ids, then poll the latest top for
// one.
type BookFeed interface {
	Start() error
	Subscribe(tokenIDs []string) error
	Get(tokenID string) (*domain.BookTop, bool)
	Close() error
}

// WSBookFeed streams CLOB order book events over the underlying
// reconnecting websocket manager and maintains a token_id -> BookTop map.
type WSBookFeed struct {
	manager *wsutil.Manager
	logger  *zap.Logger

	mu    sync.RWMutex
	books map[string]*domain.BookTop

	wg sync.WaitGroup
}

// NewWSBookFeed wires a book feed on top of a reconnecting CLOB websocket
// connection at url.
func NewWSBookFeed(url string, logger *zap.Logger) *WSBookFeed {
	manager := wsutil.New(wsutil.Config{
		URL:                   url,
		DialTimeout:           10 * time.Second,
		PongTimeout:           30 * time.Second,
		PingInterval:          15 * time.Second,
		ReconnectInitialDelay: 1 * time.Second,
		ReconnectMaxDelay:     60 * time.Second,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     1024,
		Logger:                logger,
	})

	return &WSBookFeed{
		manager: manager,
		logger:  logger,
		books:   make(map[string]*domain.BookTop),
	}
}

// Start dials the exchange and begins consuming book messages.
func (f *WSBookFeed) Start() error {
	if err := f.manager.Start(); err != nil {
		return err
	}
	f.wg.Add(1)
	go f.consume()
	return nil
}

// Subscribe subscribes to book updates for the given token ids.
func (f *WSBookFeed) Subscribe(tokenIDs []string) error {
	return f.manager.Subscribe(context.Background(), tokenIDs)
}

// Get returns the latest BookTop for tokenID, if one has been observed.
func (f *WSBookFeed) Get(tokenID string) (*domain.BookTop, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.books[tokenID]
	return b, ok
}

func (f *WSBookFeed) consume() {
	defer f.wg.Done()
	for msg := range f.manager.MessageChan() {
		f.applyMessage(msg)
	}
}

func (f *WSBookFeed) applyMessage(msg *types.OrderbookMessage) {
	if msg.EventType != "book" && msg.EventType != "price_change" {
		return
	}

	top := &domain.BookTop{
		TokenID: msg.AssetID,
		TSMs:    msg.Timestamp,
	}
	if top.TSMs == 0 {
		top.TSMs = time.Now().UnixMilli()
	}

	if bestBid, ok := bestLevel(msg.Bids, true); ok {
		top.BidPx = &bestBid.px
		top.BidSz = &bestBid.sz
	}
	if bestAsk, ok := bestLevel(msg.Asks, false); ok {
		top.AskPx = &bestAsk.px
		top.AskSz = &bestAsk.sz
	}

	f.mu.Lock()
	f.books[msg.AssetID] = top
	f.mu.Unlock()
}

type level struct {
	px float64
	sz float64
}

// bestLevel returns the best bid (highest price) or ask (lowest price)
// among the given raw string levels.
func bestLevel(levels []types.PriceLevel, wantHighest bool) (level, bool) {
	var best level
	found := false
	for _, l := range levels {
		px, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			continue
		}
		sz, err := strconv.ParseFloat(l.Size, 64)
		if err != nil {
			continue
		}
		if !found {
			best = level{px: px, sz: sz}
			found = true
			continue
		}
		if wantHighest && px > best.px {
			best = level{px: px, sz: sz}
		} else if !wantHighest && px < best.px {
			best = level{px: px, sz: sz}
		}
	}
	return best, found
}

// Close tears down the underlying connection and stops consuming.
func (f *WSBookFeed) Close() error {
	err := f.manager.Close()
	f.wg.Wait()
	return err
}
