package risk

import (
	"fmt"
	"math"

	"github.com/marketengine/binary-engine/internal/domain"
	"go.uber.org/zap"
)

// Gate is the pre-trade check every intent passes through before reaching
// the reconciler. Rules run in a fixed order and the first failure wins;
// an accepted intent is recorded against the rate limiter only when the
// caller actually dispatches it (see Record).
type Gate struct {
	limits      Limits
	kill        *KillSwitch
	rateLimiter *RateLimiter

	logger *zap.Logger
}

// NewGate constructs a Gate from its limits, kill switch and rate limiter.
func NewGate(limits Limits, kill *KillSwitch, rateLimiter *RateLimiter, logger *zap.Logger) *Gate {
	return &Gate{limits: limits, kill: kill, rateLimiter: rateLimiter, logger: logger}
}

// Check evaluates the seven ordered rules for intent against the current
// book/reference staleness, the live open-order count, the token's
// position, a reference price used for notional projection, and today's
// realised+unrealised P&L. It returns nil on accept, or a *RejectionError
// naming the first rule that failed.
func (g *Gate) Check(
	intent *domain.Intent,
	feedAgeMs int64,
	openOrderCount int,
	position *domain.Position,
	referencePrice float64,
	dailyPnL float64,
	nowMs int64,
) error {
	if g.kill.IsActive() {
		return reject(ErrKillSwitchActive, "")
	}

	if feedAgeMs > g.limits.FeedStaleMs {
		return reject(ErrFeedStale, fmt.Sprintf("age_ms=%d", feedAgeMs))
	}

	if openOrderCount >= g.limits.MaxOpenOrdersTotal {
		return reject(ErrOrderLimitExceeded, fmt.Sprintf("open=%d max=%d", openOrderCount, g.limits.MaxOpenOrdersTotal))
	}

	projectedQty := projectQty(position, intent)
	if math.Abs(projectedQty) > g.limits.MaxInventoryPerToken {
		return reject(ErrInventoryLimitExceeded, fmt.Sprintf("projected_qty=%.4f max=%.4f", projectedQty, g.limits.MaxInventoryPerToken))
	}

	projectedNotional := math.Abs(projectedQty * referencePrice)
	if projectedNotional > g.limits.MaxNotionalPerMarket {
		return reject(ErrNotionalLimitExceeded, fmt.Sprintf("projected_notional=%.4f max=%.4f", projectedNotional, g.limits.MaxNotionalPerMarket))
	}

	if dailyPnL <= -g.limits.MaxDailyLoss {
		g.kill.Activate(fmt.Sprintf("daily-loss-limit-breached pnl=%.4f", dailyPnL))
		return reject(ErrDailyLossLimitExceeded, fmt.Sprintf("daily_pnl=%.4f max_loss=%.4f", dailyPnL, g.limits.MaxDailyLoss))
	}

	if !g.rateLimiter.Allow(nowMs) {
		return reject(ErrRateLimitExceeded, "")
	}

	return nil
}

// Record commits the intent against the rate limiter. Call only once the
// intent has actually been dispatched to the reconciler, to avoid
// double-counting against the window.
func (g *Gate) Record(nowMs int64) {
	g.rateLimiter.Record(nowMs)
}

func projectQty(position *domain.Position, intent *domain.Intent) float64 {
	qty := 0.0
	if position != nil {
		qty = position.Qty
	}

	if intent.Side == domain.Buy {
		return qty + intent.Size
	}
	return qty - intent.Size
}
