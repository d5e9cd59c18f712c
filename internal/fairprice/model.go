// Package fairprice computes the model-implied fair YES probability for a
// binary outcome market from a reference spot price, and the small set of
// arithmetic helpers (tick clamping, inventory skew) the rest of the engine
// shares.
package fairprice

import (
	"errors"
	"math"

	"github.com/marketengine/binary-engine/internal/domain"
)

// ErrNoStrike is returned when a market has no strike configured.
var ErrNoStrike = errors.New("fairprice: market has no strike")

// Kernel selects which probability kernel the model uses.
type Kernel int

const (
	// NormalCDF uses the erf-based normal CDF kernel (the default).
	NormalCDF Kernel = iota
	// Logistic uses the logistic kernel.
	Logistic
)

const (
	minProb = 0.01
	maxProb = 0.99

	// Logistic kernel constants, per the reference implementation.
	logisticK0 = 1000.0
	logisticK1 = 100.0

	// InventorySkew clamp bounds.
	minSkew = -0.1
	maxSkew = 0.1
)

// Model computes fair YES probabilities for binary outcome markets.
type Model struct {
	SigmaFloor float64
	Kernel     Kernel
}

// New constructs a Model with the given sigma floor and kernel.
func New(sigmaFloor float64, kernel Kernel) *Model {
	return &Model{SigmaFloor: sigmaFloor, Kernel: kernel}
}

// FairProb computes the clamped fair YES probability for market at nowS
// (unix seconds) given ref. Returns ErrNoStrike when the market carries no
// strike price.
func (m *Model) FairProb(market *domain.Market, ref *domain.RefPrice, nowS int64) (float64, error) {
	if !market.HasStrike() {
		return 0, ErrNoStrike
	}

	distance := ref.SpotMid - *market.Strike
	tau := float64(market.ExpiryTS - nowS)
	if tau < 1 {
		tau = 1
	}
	sigma := ref.Vol30s
	if sigma < m.SigmaFloor {
		sigma = m.SigmaFloor
	}

	var pFair float64
	switch m.Kernel {
	case Logistic:
		scale := logisticK0 + logisticK1*sigma*math.Sqrt(tau)
		pFair = logisticProb(distance, scale)
	default:
		volScaled := sigma * math.Sqrt(tau)
		if volScaled == 0 {
			volScaled = m.SigmaFloor
		}
		z := distance / volScaled
		pFair = normalCDF(z)
	}

	return clampProb(pFair), nil
}

// normalCDF is the erf-based approximation of the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// logisticProb evaluates the logistic kernel with an exponent clamped to
// [-100, 100] to avoid overflow.
func logisticProb(distance, scale float64) float64 {
	if scale <= 0 {
		return 0.5
	}

	x := distance / scale
	if x > 100 {
		x = 100
	}
	if x < -100 {
		x = -100
	}

	return 1.0 / (1.0 + math.Exp(-x))
}

func clampProb(p float64) float64 {
	if p > maxProb {
		return maxProb
	}
	if p < minProb {
		return minProb
	}
	return p
}

// ClampToTick rounds price to the nearest tick, clamps it to [0.01, 0.99],
// and rounds to four decimal places to eliminate binary-float drift.
func ClampToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}

	ticks := math.Round(price / tickSize)
	clamped := ticks * tickSize
	clamped = clampProb(clamped)

	return math.Round(clamped*10000) / 10000
}

// InventorySkew returns the probability-space quote adjustment that pushes
// quotes away from the held side. Sign is opposite qty; magnitude is
// clamped to [-0.1, 0.1].
func InventorySkew(qty, maxInventory, skewFactor float64) float64 {
	if maxInventory <= 0 {
		return 0
	}

	normalized := qty / maxInventory
	skew := -normalized * skewFactor

	if skew > maxSkew {
		return maxSkew
	}
	if skew < minSkew {
		return minSkew
	}
	return skew
}
