package fairprice

import (
	"math"
	"testing"

	"github.com/marketengine/binary-engine/internal/domain"
)

func strike(v float64) *float64 { return &v }

func TestFairProb_NoStrike(t *testing.T) {
	m := New(0.001, NormalCDF)
	market, err := domain.NewMarket("no-strike", nil, 100, "yes", "no", 0.01, 1, "cond-1")
	if err != nil {
		t.Fatalf("NewMarket: %v", err)
	}

	ref := &domain.RefPrice{Symbol: "BTC", SpotMid: 50000, Vol30s: 0.01, TSMs: 0}
	if _, err := m.FairProb(market, ref, 0); err != ErrNoStrike {
		t.Fatalf("expected ErrNoStrike, got %v", err)
	}
}

func TestFairProb_Monotonicity(t *testing.T) {
	cases := []struct {
		name   string
		kernel Kernel
	}{
		{"normal-cdf", NormalCDF},
		{"logistic", Logistic},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(0.005, tc.kernel)
			market, err := domain.NewMarket("btc-100k", strike(100000), 100, "yes", "no", 0.01, 1, "cond-1")
			if err != nil {
				t.Fatalf("NewMarket: %v", err)
			}

			below := &domain.RefPrice{SpotMid: 90000, Vol30s: 0.02}
			atStrike := &domain.RefPrice{SpotMid: 100000, Vol30s: 0.02}
			above := &domain.RefPrice{SpotMid: 110000, Vol30s: 0.02}

			pBelow, err := m.FairProb(market, below, 0)
			if err != nil {
				t.Fatalf("FairProb below: %v", err)
			}
			pAt, err := m.FairProb(market, atStrike, 0)
			if err != nil {
				t.Fatalf("FairProb at: %v", err)
			}
			pAbove, err := m.FairProb(market, above, 0)
			if err != nil {
				t.Fatalf("FairProb above: %v", err)
			}

			if !(pBelow < pAt && pAt < pAbove) {
				t.Fatalf("expected monotonic increase in spot, got below=%f at=%f above=%f", pBelow, pAt, pAbove)
			}
			if math.Abs(pAt-0.5) > 0.01 {
				t.Fatalf("expected at-the-money prob near 0.5, got %f", pAt)
			}
		})
	}
}

func TestFairProb_ClampedBounds(t *testing.T) {
	m := New(0.0001, NormalCDF)
	market, err := domain.NewMarket("deep-itm", strike(1000), 100, "yes", "no", 0.01, 1, "cond-1")
	if err != nil {
		t.Fatalf("NewMarket: %v", err)
	}

	ref := &domain.RefPrice{SpotMid: 1000000, Vol30s: 0.0001}
	p, err := m.FairProb(market, ref, 0)
	if err != nil {
		t.Fatalf("FairProb: %v", err)
	}
	if p > maxProb {
		t.Fatalf("expected p clamped to %f, got %f", maxProb, p)
	}

	ref2 := &domain.RefPrice{SpotMid: 1, Vol30s: 0.0001}
	p2, err := m.FairProb(market, ref2, 0)
	if err != nil {
		t.Fatalf("FairProb: %v", err)
	}
	if p2 < minProb {
		t.Fatalf("expected p clamped to %f, got %f", minProb, p2)
	}
}

func TestClampToTick(t *testing.T) {
	tests := []struct {
		price    float64
		tick     float64
		expected float64
	}{
		{0.503, 0.01, 0.5},
		{0.506, 0.01, 0.51},
		{0.001, 0.01, 0.01},
		{0.999, 0.01, 0.99},
		{0.5, 0.001, 0.5},
	}

	for _, tt := range tests {
		got := ClampToTick(tt.price, tt.tick)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("ClampToTick(%v, %v) = %v, want %v", tt.price, tt.tick, got, tt.expected)
		}
	}
}

func TestInventorySkew(t *testing.T) {
	tests := []struct {
		name         string
		qty          float64
		maxInventory float64
		skewFactor   float64
		expected     float64
	}{
		{"no position", 0, 1000, 0.1, 0},
		{"long skews down", 500, 1000, 0.1, -0.05},
		{"short skews up", -500, 1000, 0.1, 0.05},
		{"clamped at max", 100000, 1000, 0.1, -0.1},
		{"zero max inventory", 100, 0, 0.1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InventorySkew(tt.qty, tt.maxInventory, tt.skewFactor)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("InventorySkew(%v, %v, %v) = %v, want %v", tt.qty, tt.maxInventory, tt.skewFactor, got, tt.expected)
			}
		})
	}
}
