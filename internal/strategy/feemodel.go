package strategy

// FeeModel calculates the minimum edge required to clear fees, gas and a
// risk buffer before a trade is taken.
type FeeModel struct {
	GasCostUSD   float64
	BaseTakerFee float64
	MakerRebate  float64
}

// NewFeeModel constructs a FeeModel with the given parameters.
func NewFeeModel(gasCostUSD, baseTakerFee, makerRebate float64) *FeeModel {
	return &FeeModel{
		GasCostUSD:   gasCostUSD,
		BaseTakerFee: baseTakerFee,
		MakerRebate:  makerRebate,
	}
}

// MarketType distinguishes fee curves across venue types.
type MarketType string

const (
	// MarketTypeDefault is fee-free for takers (Polymarket's standard venue).
	MarketTypeDefault MarketType = "default"
	// MarketTypeRolling15 uses the parabolic taker fee curve.
	MarketTypeRolling15 MarketType = "rolling15"
)

// TakerFeeRate estimates the taker fee rate at a price level. Only
// MarketTypeRolling15 charges takers; it peaks at price 0.50.
func (f *FeeModel) TakerFeeRate(price float64, marketType MarketType) float64 {
	if marketType != MarketTypeRolling15 {
		return 0
	}

	p := price
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	factor := 1.0 - 4.0*(p-0.5)*(p-0.5)
	if factor < 0 {
		factor = 0
	}

	return f.BaseTakerFee * factor
}

// MinEdge returns the minimum price edge required to break even on a trade
// of the given notional, covering gas, variable fees and a risk buffer.
func (f *FeeModel) MinEdge(tradeSizeUSD, price float64, isTaker bool, marketType MarketType) float64 {
	if tradeSizeUSD <= 0 {
		return 1.0
	}

	fixedImpact := f.GasCostUSD / tradeSizeUSD

	var varFee float64
	if isTaker {
		varFee = f.TakerFeeRate(price, marketType)
	} else if marketType == MarketTypeRolling15 {
		varFee = -f.MakerRebate
	}

	buffer := 0.005
	if isTaker {
		buffer = 0.015
	}

	totalEdge := fixedImpact + varFee + buffer
	if totalEdge < 0 {
		return 0
	}
	return totalEdge
}
