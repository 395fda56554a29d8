package session

import (
	"math"
	"math/rand"
	"time"
)

// Delay returns the wait before connect attempt N+1 after attempt N failed (1-based).
func (cfg BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	mult := cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter && rng != nil {
		delay *= 0.5 + rng.Float64()
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another connect attempt is allowed after attempt N.
// A non-positive limit retries forever.
func (c Config) ShouldRetry(attempt int) bool {
	if c.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < c.MaxConnectAttempts
}
