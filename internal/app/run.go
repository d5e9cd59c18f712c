package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/strategy"
)

// Run starts every component and blocks until a shutdown signal arrives.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Bool("dry-run", a.cfg.DryRun),
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	if err := a.priceFeed.Start(); err != nil {
		return err
	}
	if err := a.bookFeed.Start(); err != nil {
		return err
	}

	a.subscribeActiveMarkets()

	a.wg.Add(1)
	go a.runHTTPServer()

	a.wg.Add(1)
	go a.runLoop()

	a.wg.Add(1)
	go a.watchKillSwitchFile()

	return nil
}

// watchKillSwitchFile polls cfg.KillSwitchFilePath for existence and trips
// the kill switch the moment it appears — the out-of-band control the
// operator's `kill` subcommand uses to stop trading without access to the
// running process.
func (a *App) watchKillSwitchFile() {
	defer a.wg.Done()

	if a.cfg.KillSwitchFilePath == "" {
		return
	}

	ticker := time.NewTicker(time.Duration(a.cfg.KillSwitchPollMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(a.cfg.KillSwitchFilePath); err == nil {
				a.killSwitch.Activate("kill-switch-file-detected")
				return
			}
		}
	}
}

// subscribeActiveMarkets subscribes the price feed and book feed to every
// symbol and token pair in the registry, once, at startup. The registry is
// loaded from a static file rather than a live discovery channel, so
// there is no later point at which new markets appear.
func (a *App) subscribeActiveMarkets() {
	markets := a.registry.All()

	symbols := make(map[string]struct{}, len(markets))
	tokenIDs := make([]string, 0, len(markets)*2)

	for _, m := range markets {
		symbols[strategy.SymbolFromSlug(m.Slug)] = struct{}{}
		tokenIDs = append(tokenIDs, m.YesTokenID, m.NoTokenID)
	}

	symbolList := make([]string, 0, len(symbols))
	for s := range symbols {
		symbolList = append(symbolList, s)
	}

	if len(symbolList) > 0 {
		if err := a.priceFeed.Subscribe(symbolList); err != nil {
			a.logger.Error("price-feed-subscribe-failed", zap.Error(err))
		}
	}
	if len(tokenIDs) > 0 {
		if err := a.bookFeed.Subscribe(tokenIDs); err != nil {
			a.logger.Error("book-feed-subscribe-failed", zap.Error(err))
		}
	}

	a.logger.Info("subscribed-active-markets",
		zap.Int("markets", len(markets)),
		zap.Int("symbols", len(symbolList)),
		zap.Int("tokens", len(tokenIDs)))
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runLoop() {
	defer a.wg.Done()
	a.loop.Run(a.ctx)
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
