// Package app wires the engine's components into a running process:
// config and logger in, registry/feeds/exchange/store/loop constructed,
// HTTP server and signal-driven shutdown around them.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/accountant"
	"github.com/marketengine/binary-engine/internal/exchange"
	"github.com/marketengine/binary-engine/internal/feed"
	"github.com/marketengine/binary-engine/internal/loop"
	"github.com/marketengine/binary-engine/internal/registry"
	"github.com/marketengine/binary-engine/internal/risk"
	"github.com/marketengine/binary-engine/internal/store"
	"github.com/marketengine/binary-engine/pkg/config"
	"github.com/marketengine/binary-engine/pkg/healthprobe"
	"github.com/marketengine/binary-engine/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	registry   *registry.Registry
	priceFeed  feed.PriceFeed
	bookFeed   feed.BookFeed
	exchange   exchange.Client
	store      store.Store
	accountant *accountant.Accountant
	killSwitch *risk.KillSwitch
	loop       *loop.Loop

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // Slug from --single-market; not applied, every registry market is tracked
}
