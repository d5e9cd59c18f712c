package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/internal/store"
	"github.com/marketengine/binary-engine/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Display current token positions and realized P&L",
	Long: `Reads every open position from the configured store and prints its
size, average cost basis, and realized P&L.

Examples:
  # Show all positions (default table format)
  go run . positions

  # Export to JSON
  go run . positions --format json > positions.json

  # Export to CSV
  go run . positions --format csv > positions.csv

  # Sort by realized P&L (most profitable first)
  go run . positions --sort-by-pnl`,
	RunE: runPositions,
}

var (
	positionsFormat    string
	positionsSortByPnL bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)

	positionsCmd.Flags().StringVar(&positionsFormat, "format", "table", "Output format: table, json, csv")
	positionsCmd.Flags().BoolVar(&positionsSortByPnL, "sort-by-pnl", false, "Sort positions by realized P&L (highest first)")
}

func runPositions(cmd *cobra.Command, args []string) error {
	validFormats := map[string]bool{"table": true, "json": true, "csv": true}
	if !validFormats[positionsFormat] {
		return fmt.Errorf("invalid format: %s (valid: table, json, csv)", positionsFormat)
	}

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

	ctx := context.Background()
	dataStore, err := openPositionsStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = dataStore.Close()
	}()

	positions, err := dataStore.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	list := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		list = append(list, p)
	}
	if positionsSortByPnL {
		sort.Slice(list, func(i, j int) bool { return list[i].RealizedPnL > list[j].RealizedPnL })
	} else {
		sort.Slice(list, func(i, j int) bool { return list[i].TokenID < list[j].TokenID })
	}

	switch positionsFormat {
	case "json":
		return printPositionsJSON(list)
	case "csv":
		return printPositionsCSV(list)
	default:
		printPositionsTable(list)
		return nil
	}
}

// openPositionsStore mirrors internal/app's setupStore branch on
// StorageMode, since the CLI reads from the same store the running
// engine writes to rather than hitting the engine's HTTP API.
func openPositionsStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.StorageMode == "postgres" {
		return store.NewPostgres(ctx, &store.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return store.NewConsole(logger), nil
}

func printPositionsTable(positions []*domain.Position) {
	if len(positions) == 0 {
		fmt.Println("No open positions.")
		return
	}

	var totalPnL float64
	fmt.Printf("%-40s %12s %12s %12s\n", "TOKEN", "QTY", "AVG COST", "REALIZED P&L")
	for _, p := range positions {
		fmt.Printf("%-40s %12.2f %12.4f %12.2f\n", p.TokenID, p.Qty, p.AvgCost, p.RealizedPnL)
		totalPnL += p.RealizedPnL
	}
	fmt.Printf("\nTotal positions: %d | Total realized P&L: %.2f\n", len(positions), totalPnL)
}

func printPositionsJSON(positions []*domain.Position) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(positions)
}

func printPositionsCSV(positions []*domain.Position) error {
	writer := csv.NewWriter(os.Stdout)
	defer writer.Flush()

	if err := writer.Write([]string{"token_id", "qty", "avg_cost", "realized_pnl"}); err != nil {
		return err
	}
	for _, p := range positions {
		record := []string{
			p.TokenID,
			strconv.FormatFloat(p.Qty, 'f', -1, 64),
			strconv.FormatFloat(p.AvgCost, 'f', -1, 64),
			strconv.FormatFloat(p.RealizedPnL, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
