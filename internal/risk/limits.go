package risk

import "fmt"

// Limits is the set of configured pre-trade risk thresholds.
type Limits struct {
	MaxNotionalPerMarket float64
	MaxInventoryPerToken float64
	MaxOpenOrdersTotal   int
	MaxOrdersPerMin      int
	MaxDailyLoss         float64
	MaxTakerSlippage     float64
	FeedStaleMs          int64
}

// Validate checks the limits for sane, strictly positive values.
func (l Limits) Validate() error {
	if l.MaxNotionalPerMarket <= 0 {
		return fmt.Errorf("max_notional_per_market must be positive")
	}
	if l.MaxInventoryPerToken <= 0 {
		return fmt.Errorf("max_inventory_per_token must be positive")
	}
	if l.MaxOpenOrdersTotal <= 0 {
		return fmt.Errorf("max_open_orders_total must be positive")
	}
	if l.MaxOrdersPerMin <= 0 {
		return fmt.Errorf("max_orders_per_min must be positive")
	}
	if l.MaxDailyLoss <= 0 {
		return fmt.Errorf("max_daily_loss must be positive")
	}
	return nil
}
