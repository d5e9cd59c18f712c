package risk

import (
	"container/list"
	"sync"
)

// RateLimiter is a sliding-window token bucket: it admits at most
// maxRequests within the trailing window, regardless of submission burst
// shape.
type RateLimiter struct {
	maxRequests int
	windowMs    int64

	mu         sync.Mutex
	timestamps *list.List
}

// NewRateLimiter constructs a RateLimiter admitting maxRequests per windowMs.
func NewRateLimiter(maxRequests int, windowMs int64) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		windowMs:    windowMs,
		timestamps:  list.New(),
	}
}

// Allow reports whether a new request may proceed at nowMs without
// recording it. Use Record to commit an admitted request.
func (r *RateLimiter) Allow(nowMs int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(nowMs)
	return r.timestamps.Len() < r.maxRequests
}

// Record commits a request at nowMs against the window.
func (r *RateLimiter) Record(nowMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(nowMs)
	r.timestamps.PushBack(nowMs)
}

// Available returns how many requests remain in the current window.
func (r *RateLimiter) Available(nowMs int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(nowMs)
	n := r.maxRequests - r.timestamps.Len()
	if n < 0 {
		return 0
	}
	return n
}

// Reset clears all recorded requests.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timestamps.Init()
}

func (r *RateLimiter) evict(nowMs int64) {
	cutoff := nowMs - r.windowMs
	for e := r.timestamps.Front(); e != nil; {
		next := e.Next()
		if e.Value.(int64) < cutoff {
			r.timestamps.Remove(e)
			e = next
			continue
		}
		break
	}
}
