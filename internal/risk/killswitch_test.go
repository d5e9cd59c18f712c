package risk

import "testing"

func TestKillSwitch_ActivateRunsCallbacks(t *testing.T) {
	k := NewKillSwitch(nil)

	called := 0
	k.RegisterCallback(func() error { called++; return nil })
	k.RegisterCallback(func() error { called++; return nil })

	k.Activate("test")

	if !k.IsActive() {
		t.Fatal("expected switch to be active")
	}
	if called != 2 {
		t.Fatalf("expected both callbacks to run, got %d", called)
	}
}

func TestKillSwitch_ActivateIsIdempotent(t *testing.T) {
	k := NewKillSwitch(nil)

	called := 0
	k.RegisterCallback(func() error { called++; return nil })

	k.Activate("first")
	k.Activate("second")

	if called != 1 {
		t.Fatalf("expected callbacks to run exactly once, got %d", called)
	}
}

func TestKillSwitch_FaultyCallbackDoesNotBlockOthers(t *testing.T) {
	k := NewKillSwitch(nil)

	secondRan := false
	k.RegisterCallback(func() error { return errTestCallback })
	k.RegisterCallback(func() error { secondRan = true; return nil })

	k.Activate("test")

	if !secondRan {
		t.Fatal("expected second callback to run despite first failing")
	}
}

func TestKillSwitch_Reset(t *testing.T) {
	k := NewKillSwitch(nil)
	k.Activate("test")
	k.Reset()

	if k.IsActive() {
		t.Fatal("expected switch to be inactive after reset")
	}
}

var errTestCallback = fmtError("callback failed")

type fmtError string

func (e fmtError) Error() string { return string(e) }
