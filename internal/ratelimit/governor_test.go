package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now    time.Time
	slept  []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	f.slept = append(f.slept, d)
	f.now = f.now.Add(d)
	return true
}

type stubAuth struct {
	calls  int
	token  string
	expiry time.Time
}

func (s *stubAuth) Authenticate(ctx context.Context) (string, time.Time, error) {
	s.calls++
	return s.token, s.expiry, nil
}

func TestGovernorFirstAcquireDoesNotWait(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	auth := &stubAuth{token: "tok1", expiry: clock.now.Add(time.Hour)}
	g := New(DefaultConfig(), auth).WithClock(clock)

	tok, err := g.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok1", tok)
	assert.Equal(t, 1, auth.calls)
	assert.Empty(t, clock.slept, "first acquire should not wait")
}

func TestGovernorSecondAcquireWaitsWithinBounds(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	auth := &stubAuth{token: "tok1", expiry: clock.now.Add(time.Hour)}
	cfg := DefaultConfig()
	g := New(cfg, auth).WithClock(clock)

	_, err := g.Acquire(context.Background())
	require.NoError(t, err)

	_, err = g.Acquire(context.Background())
	require.NoError(t, err)

	require.Len(t, clock.slept, 1)
	assert.GreaterOrEqual(t, clock.slept[0], cfg.MinDelay)
	assert.LessOrEqual(t, clock.slept[0], cfg.MaxDelay)
}

func TestGovernorRefreshesExpiringToken(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	auth := &stubAuth{token: "tok1", expiry: clock.now.Add(30 * time.Second)}
	g := New(DefaultConfig(), auth).WithClock(clock)

	_, err := g.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, auth.calls, "first acquire always authenticates")

	auth.token = "tok2"
	auth.expiry = clock.now.Add(time.Hour)
	_, err = g.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, auth.calls, "token within 60s of expiry must be refreshed")
}

func TestGovernorFeedbackRetryAfterSleepsAtLeastRetryAfter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	g := New(DefaultConfig(), nil).WithClock(clock)

	g.Feedback(context.Background(), Feedback{StatusCode: 429, RetryAfter: 10 * time.Second})

	require.Len(t, clock.slept, 1)
	assert.GreaterOrEqual(t, clock.slept[0], 10*time.Second)
	assert.Equal(t, 1, g.ConsecutiveFailures())
}

func TestGovernorFeedbackBackoffCapsAndEscalates(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cfg := DefaultConfig()
	g := New(cfg, nil).WithClock(clock)

	for i := 0; i < 10; i++ {
		g.Feedback(context.Background(), Feedback{StatusCode: 503})
	}

	assert.Equal(t, 10, g.ConsecutiveFailures())
	last := clock.slept[len(clock.slept)-1]
	assert.LessOrEqual(t, last, time.Duration(float64(cfg.BackoffCap)*1.3))
}

func TestGovernorFeedbackSuccessResetsFailures(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	g := New(DefaultConfig(), nil).WithClock(clock)

	g.Feedback(context.Background(), Feedback{StatusCode: 503})
	require.Equal(t, 1, g.ConsecutiveFailures())

	g.Feedback(context.Background(), Feedback{StatusCode: 200})
	assert.Equal(t, 0, g.ConsecutiveFailures())
}
