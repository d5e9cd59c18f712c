package risk

import (
	"errors"
	"testing"

	"github.com/marketengine/binary-engine/internal/domain"
)

func testLimits() Limits {
	return Limits{
		MaxNotionalPerMarket: 1000.0,
		MaxInventoryPerToken: 100.0,
		MaxOpenOrdersTotal:   10,
		MaxOrdersPerMin:      30,
		MaxDailyLoss:         50.0,
		MaxTakerSlippage:     0.02,
		FeedStaleMs:          2000,
	}
}

func newTestIntent(t *testing.T, tokenID string, side domain.Side, price, size float64) *domain.Intent {
	t.Helper()
	in, err := domain.NewIntent(tokenID, side, price, size, domain.Maker, 3000, "test", 0)
	if err != nil {
		t.Fatalf("NewIntent: %v", err)
	}
	return in
}

func TestGate_InventoryLimitExceeded(t *testing.T) {
	limits := testLimits()
	gate := NewGate(limits, NewKillSwitch(nil), NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	position := &domain.Position{TokenID: "0x123", Qty: 90, AvgCost: 0.50}
	intent := newTestIntent(t, "0x123", domain.Buy, 0.52, 20)

	err := gate.Check(intent, 0, 0, position, 0.52, 0, 0)
	if !errors.Is(err, ErrInventoryLimitExceeded) {
		t.Fatalf("expected ErrInventoryLimitExceeded, got %v", err)
	}
}

func TestGate_InventoryLimitPasses(t *testing.T) {
	limits := testLimits()
	gate := NewGate(limits, NewKillSwitch(nil), NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	position := &domain.Position{TokenID: "0x123", Qty: 90, AvgCost: 0.50}
	intent := newTestIntent(t, "0x123", domain.Buy, 0.52, 5)

	if err := gate.Check(intent, 0, 0, position, 0.52, 0, 0); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestGate_NotionalLimitExceeded(t *testing.T) {
	limits := testLimits()
	limits.MaxNotionalPerMarket = 100.0
	limits.MaxInventoryPerToken = 1000.0
	gate := NewGate(limits, NewKillSwitch(nil), NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	position := &domain.Position{TokenID: "0x123", Qty: 100, AvgCost: 0.50}
	intent := newTestIntent(t, "0x123", domain.Buy, 0.80, 100)

	err := gate.Check(intent, 0, 0, position, 0.80, 0, 0)
	if !errors.Is(err, ErrNotionalLimitExceeded) {
		t.Fatalf("expected ErrNotionalLimitExceeded, got %v", err)
	}
}

func TestGate_OrderLimitExceeded(t *testing.T) {
	limits := testLimits()
	limits.MaxOpenOrdersTotal = 2
	gate := NewGate(limits, NewKillSwitch(nil), NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	intent := newTestIntent(t, "0x456", domain.Buy, 0.50, 10)

	err := gate.Check(intent, 0, 2, nil, 0.50, 0, 0)
	if !errors.Is(err, ErrOrderLimitExceeded) {
		t.Fatalf("expected ErrOrderLimitExceeded, got %v", err)
	}
}

func TestGate_KillSwitchBlocksAll(t *testing.T) {
	limits := testLimits()
	kill := NewKillSwitch(nil)
	kill.Activate("test activation")
	gate := NewGate(limits, kill, NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	intent := newTestIntent(t, "0x123", domain.Buy, 0.50, 10)

	err := gate.Check(intent, 0, 0, nil, 0.50, 0, 0)
	if !errors.Is(err, ErrKillSwitchActive) {
		t.Fatalf("expected ErrKillSwitchActive, got %v", err)
	}
}

func TestGate_FeedStaleRejects(t *testing.T) {
	limits := testLimits()
	gate := NewGate(limits, NewKillSwitch(nil), NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	intent := newTestIntent(t, "0x123", domain.Buy, 0.50, 10)

	err := gate.Check(intent, 3000, 0, nil, 0.50, 0, 0)
	if !errors.Is(err, ErrFeedStale) {
		t.Fatalf("expected ErrFeedStale, got %v", err)
	}
}

func TestGate_DailyLossTripsKillSwitch(t *testing.T) {
	limits := testLimits()
	kill := NewKillSwitch(nil)
	gate := NewGate(limits, kill, NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	intent := newTestIntent(t, "0x123", domain.Buy, 0.50, 10)

	err := gate.Check(intent, 0, 0, nil, 0.50, -60, 0)
	if !errors.Is(err, ErrDailyLossLimitExceeded) {
		t.Fatalf("expected ErrDailyLossLimitExceeded, got %v", err)
	}
	if !kill.IsActive() {
		t.Fatal("expected daily loss breach to trip the kill switch")
	}
}

func TestGate_RateLimit(t *testing.T) {
	limits := testLimits()
	limits.MaxOrdersPerMin = 2
	gate := NewGate(limits, NewKillSwitch(nil), NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	intent := newTestIntent(t, "0x123", domain.Buy, 0.50, 10)

	if err := gate.Check(intent, 0, 0, nil, 0.50, 0, 0); err != nil {
		t.Fatalf("expected first check to pass, got %v", err)
	}
	gate.Record(0)

	if err := gate.Check(intent, 0, 0, nil, 0.50, 0, 1); err != nil {
		t.Fatalf("expected second check to pass, got %v", err)
	}
	gate.Record(1)

	err := gate.Check(intent, 0, 0, nil, 0.50, 0, 2)
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded on third check, got %v", err)
	}
}

func TestGate_RulePrecedence_KillSwitchPreemptsAllOthers(t *testing.T) {
	limits := testLimits()
	limits.MaxOpenOrdersTotal = 1
	kill := NewKillSwitch(nil)
	kill.Activate("test")
	gate := NewGate(limits, kill, NewRateLimiter(limits.MaxOrdersPerMin, 60000), nil)

	intent := newTestIntent(t, "0x123", domain.Buy, 0.50, 10)

	err := gate.Check(intent, 5000, 99, nil, 0.50, -1000, 0)
	if !errors.Is(err, ErrKillSwitchActive) {
		t.Fatalf("expected kill switch to preempt every later rule, got %v", err)
	}
}
