// Package registry loads and serves the set of configured binary outcome
// markets. Markets are immutable once loaded; the registry only replaces
// its entire snapshot wholesale on Reload.
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/pkg/cache"
)

// marketFile mirrors the on-disk JSON schema.
type marketFile struct {
	Markets []marketEntry `json:"markets"`
}

type marketEntry struct {
	Slug        string   `json:"slug"`
	Strike      *float64 `json:"strike"`
	ExpiryTS    int64    `json:"expiry_ts"`
	YesTokenID  string   `json:"yes_token_id"`
	NoTokenID   string   `json:"no_token_id"`
	TickSize    float64  `json:"tick_size"`
	MinSize     float64  `json:"min_size"`
	ConditionID string   `json:"condition_id"`
}

const cacheTTL = 24 * time.Hour

// Registry holds the active set of markets, loaded from a JSON file and
// cached in-memory. The core reads it as read-only; only Reload mutates it.
type Registry struct {
	path string

	mu             sync.RWMutex
	markets        map[string]*domain.Market
	tokenToMarket  map[string]string

	cache  cache.Cache
	logger *zap.Logger
}

// New constructs a Registry and performs an initial load from path.
func New(path string, c cache.Cache, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		path:          path,
		markets:       make(map[string]*domain.Market),
		tokenToMarket: make(map[string]string),
		cache:         c,
		logger:        logger,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the registry file from disk, replacing the in-memory set.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.logger.Warn("market-registry-not-found", zap.String("path", r.path))
		r.mu.Lock()
		r.markets = make(map[string]*domain.Market)
		r.tokenToMarket = make(map[string]string)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read registry file: %w", err)
	}

	var file marketFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse registry json: %w", err)
	}

	markets := make(map[string]*domain.Market, len(file.Markets))
	tokenToMarket := make(map[string]string, len(file.Markets)*2)

	for _, entry := range file.Markets {
		tickSize := entry.TickSize
		if tickSize == 0 {
			tickSize = 0.01
		}
		minSize := entry.MinSize
		if minSize == 0 {
			minSize = 1.0
		}

		market, err := domain.NewMarket(entry.Slug, entry.Strike, entry.ExpiryTS, entry.YesTokenID, entry.NoTokenID, tickSize, minSize, entry.ConditionID)
		if err != nil {
			return fmt.Errorf("invalid market %q: %w", entry.Slug, err)
		}

		markets[market.Slug] = market
		tokenToMarket[market.YesTokenID] = market.Slug
		tokenToMarket[market.NoTokenID] = market.Slug

		if r.cache != nil {
			r.cache.Set("market:"+market.Slug, market, cacheTTL)
		}
	}

	r.mu.Lock()
	r.markets = markets
	r.tokenToMarket = tokenToMarket
	r.mu.Unlock()

	r.logger.Info("markets-loaded", zap.Int("count", len(markets)), zap.String("path", r.path))
	return nil
}

// Market returns the market with the given slug, preferring the cache.
func (r *Registry) Market(slug string) (*domain.Market, bool) {
	if r.cache != nil {
		if cached, ok := r.cache.Get("market:" + slug); ok {
			if m, ok := cached.(*domain.Market); ok {
				return m, true
			}
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[slug]
	return m, ok
}

// MarketByToken resolves a market from either its YES or NO token id.
func (r *Registry) MarketByToken(tokenID string) (*domain.Market, bool) {
	r.mu.RLock()
	slug, ok := r.tokenToMarket[tokenID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Market(slug)
}

// All returns a snapshot copy of every configured market.
func (r *Registry) All() map[string]*domain.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*domain.Market, len(r.markets))
	for k, v := range r.markets {
		out[k] = v
	}
	return out
}

// Active returns markets whose expiry is strictly after nowS.
func (r *Registry) Active(nowS int64) map[string]*domain.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*domain.Market)
	for slug, m := range r.markets {
		if m.ExpiryTS > nowS {
			out[slug] = m
		}
	}
	return out
}
