package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "binary-engine",
	Short: "Binary outcome market making and lag-arbitrage engine",
	Long: `A trading engine for binary outcome prediction markets.

On each tick it reads the current order book and reference spot price for
every active market, computes a model-implied fair probability, routes
between lag arbitrage and market making, checks every resulting intent
against a pre-trade risk gate, and reconciles the survivors against the
exchange's live open orders.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
