package risk

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// KillSwitch is an idempotent, process-wide latch. Once activated it stays
// active until explicitly reset; activation runs every registered teardown
// callback, swallowing individual callback errors so one faulty handler
// never blocks the others.
type KillSwitch struct {
	active atomic.Bool

	mu        sync.Mutex
	callbacks []func() error
	logger    *zap.Logger
}

// NewKillSwitch constructs an inactive KillSwitch.
func NewKillSwitch(logger *zap.Logger) *KillSwitch {
	return &KillSwitch{logger: logger}
}

// RegisterCallback appends a teardown callback to run on activation.
func (k *KillSwitch) RegisterCallback(cb func() error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.callbacks = append(k.callbacks, cb)
}

// Activate trips the switch and runs every registered callback. Calling
// Activate while already active is a no-op.
func (k *KillSwitch) Activate(reason string) {
	if !k.active.CompareAndSwap(false, true) {
		if k.logger != nil {
			k.logger.Warn("kill-switch-already-active")
		}
		return
	}

	if k.logger != nil {
		k.logger.Error("kill-switch-activated", zap.String("reason", reason))
	}

	k.mu.Lock()
	callbacks := append([]func() error(nil), k.callbacks...)
	k.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(); err != nil && k.logger != nil {
			k.logger.Error("kill-switch-callback-failed", zap.Error(err))
		}
	}
}

// IsActive reports whether the switch is currently tripped.
func (k *KillSwitch) IsActive() bool {
	return k.active.Load()
}

// Reset clears the latch. Intended for operator-driven recovery only.
func (k *KillSwitch) Reset() {
	if !k.active.CompareAndSwap(true, false) {
		if k.logger != nil {
			k.logger.Warn("kill-switch-already-inactive")
		}
		return
	}
	if k.logger != nil {
		k.logger.Warn("kill-switch-reset")
	}
}
