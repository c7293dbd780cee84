// Package ratelimit implements the per-credential rate governor (C3).
// It keeps the Clock abstraction for deterministic tests from
// engine/internal/ratelimit/limiter.go, but holds the state of one credential
// only (no sharded per-key map, no eviction loop), and the algorithm is
// replaced: the teacher's adaptive fill-rate token bucket becomes this spec's fixed
// jittered-interval governor with lazy OAuth2-style token refresh, grounded
// on original_source/src/usps/vacancy.py's USPSVacancyChecker.
package ratelimit

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

var ErrMissingCredential = errors.New("ratelimit: credential id required")

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Config is the governor's per-credential behavior, fixed at construction
// (spec.md §4.3's {min_delay, max_delay, backoff_base, backoff_cap}).
type Config struct {
	MinDelay          time.Duration
	MaxDelay          time.Duration
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	BackoffMultiplier float64
}

// DefaultConfig mirrors original_source/src/usps/vacancy.py's constants.
func DefaultConfig() Config {
	return Config{
		MinDelay:          30 * time.Second,
		MaxDelay:          55 * time.Second,
		BackoffBase:       120 * time.Second,
		BackoffCap:        900 * time.Second,
		BackoffMultiplier: 2,
	}
}

// Authenticator performs the credential's token exchange; implementations
// are collector-specific (USPS OAuth2 bearer today).
type Authenticator interface {
	Authenticate(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// Feedback is reported by the caller after every request so the governor can
// adapt its spacing and refresh state.
type Feedback struct {
	StatusCode int
	Err        error
	RetryAfter time.Duration // parsed from a Retry-After header, if any
}

// Governor regulates a single credential's request cadence and token lifecycle.
type Governor struct {
	cfg    Config
	auth   Authenticator
	clock  Clock
	rng    *rand.Rand
	mu     sync.Mutex
	state  state
}

type state struct {
	lastRequestTime     time.Time
	consecutiveFailures int
	token               string
	tokenExpiry         time.Time
}

// New builds a Governor for one credential. auth may be nil for collectors
// that do not use bearer tokens (e.g. Nominatim), in which case Acquire
// never attempts a refresh.
func New(cfg Config, auth Authenticator) *Governor {
	return &Governor{cfg: cfg, auth: auth, clock: realClock{}, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// WithClock overrides the clock, for tests.
func (g *Governor) WithClock(c Clock) *Governor {
	if c != nil {
		g.clock = c
	}
	return g
}

// Acquire blocks until the jittered inter-request spacing has elapsed and
// returns the current bearer token (refreshed lazily if within 60s of
// expiry). Spacing is uniform(min_delay, max_delay) per call — never fixed —
// per spec.md §4.3.
func (g *Governor) Acquire(ctx context.Context) (token string, err error) {
	g.mu.Lock()
	wait := g.nextWaitLocked()
	g.mu.Unlock()

	if wait > 0 {
		if !g.clock.Sleep(ctx, wait) {
			return "", ctx.Err()
		}
	}

	g.mu.Lock()
	g.state.lastRequestTime = g.clock.Now()
	needsAuth := g.auth != nil && (g.state.token == "" || g.clock.Now().After(g.state.tokenExpiry.Add(-60*time.Second)))
	g.mu.Unlock()

	if needsAuth {
		tok, expiry, err := g.auth.Authenticate(ctx)
		if err != nil {
			return "", err
		}
		g.mu.Lock()
		g.state.token = tok
		g.state.tokenExpiry = expiry
		g.mu.Unlock()
	}

	g.mu.Lock()
	tok := g.state.token
	g.mu.Unlock()
	return tok, nil
}

func (g *Governor) nextWaitLocked() time.Duration {
	if g.state.lastRequestTime.IsZero() {
		return 0
	}
	target := g.cfg.MinDelay + time.Duration(g.rng.Float64()*float64(g.cfg.MaxDelay-g.cfg.MinDelay))
	elapsed := g.clock.Now().Sub(g.state.lastRequestTime)
	if elapsed >= target {
		return 0
	}
	return target - elapsed
}

// Feedback applies the post-request outcome per spec.md §4.3/§7: a 429 with
// Retry-After sleeps retryAfter+uniform(5,30); a 429 without header or a 5xx
// applies exponential backoff capped at BackoffCap with a uniform(1,1.3)
// jitter multiplier and increments consecutive_failures; success resets
// consecutive_failures to zero.
func (g *Governor) Feedback(ctx context.Context, fb Feedback) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if fb.StatusCode == 429 && fb.RetryAfter > 0 {
		sleepFor := fb.RetryAfter + time.Duration(5+g.rng.Float64()*25)*time.Second
		g.state.consecutiveFailures++
		g.sleepLocked(ctx, sleepFor)
		return
	}
	if fb.StatusCode == 429 || fb.Err != nil || fb.StatusCode >= 500 {
		g.state.consecutiveFailures++
		delay := float64(g.cfg.BackoffBase) * pow(g.cfg.BackoffMultiplier, float64(g.state.consecutiveFailures-1))
		if delay > float64(g.cfg.BackoffCap) {
			delay = float64(g.cfg.BackoffCap)
		}
		delay *= 1 + g.rng.Float64()*0.3
		g.sleepLocked(ctx, time.Duration(delay))
		return
	}
	g.state.consecutiveFailures = 0
}

// sleepLocked is called with the state lock held; it releases the lock for
// the duration of the sleep and re-acquires it before returning.
func (g *Governor) sleepLocked(ctx context.Context, d time.Duration) {
	g.mu.Unlock()
	g.clock.Sleep(ctx, d)
	g.mu.Lock()
}

// ConsecutiveFailures reports the credential's current failure streak, used
// by the scheduler's per-consumer circuit breaker (spec.md §4.4/§7).
func (g *Governor) ConsecutiveFailures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.consecutiveFailures
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}
