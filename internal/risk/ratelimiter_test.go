package risk

import "testing"

func TestRateLimiter_AllowsUpToMax(t *testing.T) {
	r := NewRateLimiter(2, 60000)

	if !r.Allow(0) {
		t.Fatal("expected first request to be allowed")
	}
	r.Record(0)

	if !r.Allow(100) {
		t.Fatal("expected second request to be allowed")
	}
	r.Record(100)

	if r.Allow(200) {
		t.Fatal("expected third request to be denied")
	}
}

func TestRateLimiter_WindowSlidesOut(t *testing.T) {
	r := NewRateLimiter(1, 1000)

	r.Record(0)
	if r.Allow(500) {
		t.Fatal("expected request within window to be denied")
	}
	if !r.Allow(1500) {
		t.Fatal("expected request after window to slide out and be allowed")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	r := NewRateLimiter(1, 60000)
	r.Record(0)
	r.Reset()

	if !r.Allow(10) {
		t.Fatal("expected request to be allowed after reset")
	}
}
