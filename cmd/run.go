package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketengine/binary-engine/internal/app"
	"github.com/marketengine/binary-engine/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading engine",
	Long: `Starts the binary outcome trading engine, which will:
1. Load the configured market registry
2. Subscribe to reference price and order book feeds for every market
3. Run the tick loop: fair price, routing, risk gate, reconciliation
4. Serve /health, /ready, /metrics, /positions, /decisions/recent over HTTP

--single-market is accepted but not applied: every active registry
market is tracked.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("single-market", "s", "", "Market slug (accepted but not applied; every market is tracked)")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	singleMarket, _ := cmd.Flags().GetString("single-market")

	opts := &app.Options{
		SingleMarket: singleMarket,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
