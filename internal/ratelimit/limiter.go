// Package ratelimit provides a fixed-window request counter keyed by client
// address. Accuracy is approximate by design; the counter exists to blunt
// brute-force attempts, not to meter traffic precisely.
package ratelimit

import (
	"sync"
	"time"
)

// pruneInterval bounds how often stale windows are swept from the map.
const pruneInterval = time.Minute

type window struct {
	start time.Time
	count int
}

// Limiter counts requests per key within a fixed window.
type Limiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	windows   map[string]*window
	lastPrune time.Time
	nowFunc   func() time.Time
}

// New constructs a limiter allowing max requests per key per window.
func New(max int, windowDur time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  windowDur,
		windows: make(map[string]*window),
		nowFunc: time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// limit. When rejected, retryAfter is how long until the current window
// rolls over, measured from the window's first request.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{start: now, count: 1}
		return true, 0
	}

	if w.count >= l.max {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

// pruneLocked drops windows that ended before the current one could reject
// anything. Runs at most once per pruneInterval to keep Allow cheap.
func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < pruneInterval {
		return
	}
	l.lastPrune = now
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}
