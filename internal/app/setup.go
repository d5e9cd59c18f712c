package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/accountant"
	"github.com/marketengine/binary-engine/internal/exchange"
	"github.com/marketengine/binary-engine/internal/fairprice"
	"github.com/marketengine/binary-engine/internal/feed"
	"github.com/marketengine/binary-engine/internal/loop"
	"github.com/marketengine/binary-engine/internal/reconciler"
	"github.com/marketengine/binary-engine/internal/registry"
	"github.com/marketengine/binary-engine/internal/risk"
	"github.com/marketengine/binary-engine/internal/store"
	"github.com/marketengine/binary-engine/internal/strategy"
	"github.com/marketengine/binary-engine/pkg/cache"
	"github.com/marketengine/binary-engine/pkg/config"
	"github.com/marketengine/binary-engine/pkg/healthprobe"
	"github.com/marketengine/binary-engine/pkg/httpserver"
)

// New constructs a fully wired App from cfg. Call Run to start the tick
// loop and HTTP server.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	reg, err := registry.New(cfg.MarketRegistryPath, marketCache, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup registry: %w", err)
	}

	dataStore, err := setupStore(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup store: %w", err)
	}

	acc, err := accountant.New(ctx, dataStore, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup accountant: %w", err)
	}

	exchangeClient, err := setupExchange(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}

	priceFeed := feed.NewWSPriceFeed(cfg.PriceFeedWSURL, logger)
	bookFeed := feed.NewWSBookFeed(cfg.BookFeedWSURL, logger)

	kill := risk.NewKillSwitch(logger)
	kill.RegisterCallback(func() error {
		_, cancelErr := exchangeClient.CancelAllOrders(context.Background())
		return cancelErr
	})
	if cfg.KillSwitch {
		kill.Activate("kill-switch-enabled-at-startup")
	}

	router := setupRouter(cfg, logger)
	gate := setupGate(cfg, kill, logger)
	rec := reconciler.New(exchangeClient, dataStore, cfg.MakerHalfSpread, logger)

	healthChecker := healthprobe.New()
	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Accountant:    acc,
		Store:         dataStore,
	})

	tradingLoop := loop.New(loop.Config{
		Registry:      reg,
		PriceFeed:     priceFeed,
		BookFeed:      bookFeed,
		Router:        router,
		Gate:          gate,
		Reconciler:    rec,
		Accountant:    acc,
		Exchange:      exchangeClient,
		Store:         dataStore,
		Interval:      time.Duration(cfg.LoopIntervalMs) * time.Millisecond,
		SymbolMapping: singleMarketFilter(opts),
		Logger:        logger,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		registry:      reg,
		priceFeed:     priceFeed,
		bookFeed:      bookFeed,
		exchange:      exchangeClient,
		store:         dataStore,
		accountant:    acc,
		killSwitch:    kill,
		loop:          tradingLoop,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max markets
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.StorageMode == "postgres" {
		pg, err := store.NewPostgres(ctx, &store.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return pg, nil
	}
	return store.NewConsole(logger), nil
}

func setupExchange(cfg *config.Config, logger *zap.Logger) (exchange.Client, error) {
	if cfg.DryRun {
		return exchange.NewDryRun(logger), nil
	}

	client, err := exchange.NewPolymarket(exchange.Config{
		PrivateKey:    cfg.PrivateKey,
		APIKey:        cfg.APIKey,
		Secret:        cfg.APISecret,
		Passphrase:    cfg.APIPassphrase,
		ChainID:       cfg.ChainID,
		BaseURL:       cfg.CLOBURL,
		SignatureType: 0,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create polymarket client: %w", err)
	}
	return client, nil
}

func setupRouter(cfg *config.Config, logger *zap.Logger) *strategy.Router {
	kernel := fairprice.NormalCDF
	if !cfg.UseNormalCDF {
		kernel = fairprice.Logistic
	}
	fp := fairprice.New(cfg.SigmaFloor, kernel)

	feeModel := strategy.NewFeeModel(cfg.GasCostUSD, cfg.BaseTakerFee, cfg.MakerRebate)
	marketType := strategy.MarketType(cfg.FeeMarketType)

	lagArb := strategy.NewLagArb(cfg.TakerEdgeThreshold, cfg.MaxSlippage, cfg.DefaultTakerSize, feeModel, marketType, logger)
	marketMaker := strategy.NewMarketMaker(cfg.MakerHalfSpread, cfg.DefaultQuoteSize, cfg.QuoteRefreshTTLMs, cfg.InventorySkewFactor, cfg.MaxInventory, feeModel, marketType, logger)
	toxicity := strategy.NewToxicityDetector(cfg.ToxicityVolThreshold, cfg.ToxicitySpreadThreshold, logger)

	return strategy.NewRouter(fp, lagArb, marketMaker, toxicity, cfg.FeedStaleMs, logger)
}

func setupGate(cfg *config.Config, kill *risk.KillSwitch, logger *zap.Logger) *risk.Gate {
	limits := risk.Limits{
		MaxNotionalPerMarket: cfg.MaxNotionalPerMarket,
		MaxInventoryPerToken: cfg.MaxInventoryPerToken,
		MaxOpenOrdersTotal:   cfg.MaxOpenOrdersTotal,
		MaxOrdersPerMin:      cfg.MaxOrdersPerMin,
		MaxDailyLoss:         cfg.MaxDailyLoss,
		MaxTakerSlippage:     cfg.MaxTakerSlippage,
		FeedStaleMs:          cfg.FeedStaleMs,
	}
	rateLimiter := risk.NewRateLimiter(cfg.MaxOrdersPerMin, 60_000)
	return risk.NewGate(limits, kill, rateLimiter, logger)
}

// singleMarketFilter returns the loop's slug-to-symbol override map, which
// is always empty, so every market uses the slug-derived symbol.
// opts.SingleMarket is not read here or anywhere else: a --single-market
// slug does not restrict which registry markets the loop trades.
func singleMarketFilter(opts *Options) map[string]string {
	return map[string]string{}
}
