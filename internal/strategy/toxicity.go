package strategy

import (
	"math"

	"github.com/marketengine/binary-engine/internal/domain"
	"go.uber.org/zap"
)

// ToxicityDetector flags adverse market regimes (wide spreads, fast-moving
// reference prices) that should gate aggressive quoting.
type ToxicityDetector struct {
	VolThreshold    float64
	SpreadThreshold float64

	logger *zap.Logger
}

// NewToxicityDetector constructs a ToxicityDetector.
func NewToxicityDetector(volThreshold, spreadThreshold float64, logger *zap.Logger) *ToxicityDetector {
	return &ToxicityDetector{
		VolThreshold:    volThreshold,
		SpreadThreshold: spreadThreshold,
		logger:          logger,
	}
}

// IsToxic reports whether the current book/reference state looks adverse.
func (d *ToxicityDetector) IsToxic(book *domain.BookTop, ref *domain.RefPrice) bool {
	var reasons []string

	if spread := book.Spread(); spread != nil && *spread > d.SpreadThreshold {
		reasons = append(reasons, "wide-spread")
	}

	if math.Abs(ref.R5s) > d.VolThreshold {
		reasons = append(reasons, "high-vol-5s")
	}

	if len(reasons) == 0 {
		return false
	}

	if d.logger != nil {
		d.logger.Debug("toxic-regime-detected",
			zap.String("token-id", book.TokenID),
			zap.Strings("reasons", reasons))
	}

	return true
}
