package strategy

import (
	"math"
	"testing"
)

func TestFeeModel_TakerFeeRate(t *testing.T) {
	f := NewFeeModel(0.01, 0.02, 0.002)

	if got := f.TakerFeeRate(0.5, MarketTypeDefault); got != 0 {
		t.Errorf("default market type should be fee-free for takers, got %v", got)
	}

	peak := f.TakerFeeRate(0.5, MarketTypeRolling15)
	if math.Abs(peak-0.02) > 1e-9 {
		t.Errorf("expected peak fee at p=0.5 to equal base_taker_fee, got %v", peak)
	}

	edge := f.TakerFeeRate(0.0, MarketTypeRolling15)
	if edge != 0 {
		t.Errorf("expected zero fee at p=0, got %v", edge)
	}
}

func TestFeeModel_MinEdge(t *testing.T) {
	f := NewFeeModel(0.01, 0.02, 0.002)

	if got := f.MinEdge(0, 0.5, true, MarketTypeDefault); got != 1.0 {
		t.Errorf("zero trade size should return edge 1.0, got %v", got)
	}

	takerEdge := f.MinEdge(100, 0.5, true, MarketTypeDefault)
	if takerEdge <= 0 {
		t.Errorf("expected positive taker min edge, got %v", takerEdge)
	}

	makerEdge := f.MinEdge(100, 0.5, false, MarketTypeRolling15)
	if makerEdge >= takerEdge {
		t.Errorf("maker rebate on rolling15 should lower min edge below taker's, got maker=%v taker=%v", makerEdge, takerEdge)
	}
}
