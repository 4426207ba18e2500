package openrouter

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// millisecondThreshold separates second and millisecond epoch values.
const millisecondThreshold = 1e12

// cooldown tracks the account-level rate limit window. The zero value is inactive.
type cooldown struct {
	mu      sync.Mutex
	resetAt time.Time
}

// active reports whether now is before the reset time, clearing an expired window.
func (c *cooldown) active(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetAt.IsZero() {
		return false
	}
	if now.Before(c.resetAt) {
		return true
	}
	c.resetAt = time.Time{}
	return false
}

// until returns the reset time when the window is active.
func (c *cooldown) until(now time.Time) (time.Time, bool) {
	if !c.active(now) {
		return time.Time{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetAt, true
}

// extend moves the reset time forward; an earlier reset never shortens the window.
func (c *cooldown) extend(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if resetAt.After(c.resetAt) {
		c.resetAt = resetAt
	}
}

// parseResetHeader reads X-RateLimit-Reset as a unix timestamp in seconds.
// Values above the millisecond threshold are read as milliseconds.
func parseResetHeader(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	value, errParse := strconv.ParseFloat(trimmed, 64)
	if errParse != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return time.Time{}, false
	}
	if value >= millisecondThreshold {
		return time.UnixMilli(int64(value)), true
	}
	sec, frac := math.Modf(value)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))), true
}

// secondsUntil rounds the remaining window up to whole seconds.
func secondsUntil(resetAt, now time.Time) *int {
	remaining := resetAt.Sub(now)
	if remaining <= 0 {
		return nil
	}
	secs := int(math.Ceil(remaining.Seconds()))
	return &secs
}
