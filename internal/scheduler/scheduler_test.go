package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distressscan/internal/ratelimit"
)

func TestRunShapeAPreservesResultOrderByIndex(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results := RunShapeA(context.Background(), items, Config{Workers: 3}, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i]*items[i], r.Value)
		assert.NoError(t, r.Err)
	}
}

func TestRunShapeAPropagatesErrors(t *testing.T) {
	items := []int{1, 2, 3}
	results := RunShapeA(context.Background(), items, Config{Workers: 2}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("boom")
		}
		return n, nil
	})
	require.Len(t, results, 3)
	assert.Error(t, results[1].Err)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestRunShapeBAbortsAtThreshold(t *testing.T) {
	gov := ratelimit.New(ratelimit.Config{MinDelay: 0, MaxDelay: 0, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond, BackoffMultiplier: 1}, nil)
	items := make([]int, 30)
	cfg := Config{CircuitWarnThreshold: 10, CircuitAbortThreshold: 20, CircuitPauseDuration: time.Millisecond}

	_, state := RunShapeB(context.Background(), items, gov, cfg, func(ctx context.Context, n int) (int, error) {
		gov.Feedback(ctx, ratelimit.Feedback{StatusCode: 503})
		return n, nil
	})
	assert.True(t, state.Aborted)
}

func TestRunShapeBCompletesWithoutFailures(t *testing.T) {
	gov := ratelimit.New(ratelimit.Config{MinDelay: 0, MaxDelay: 0, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond, BackoffMultiplier: 1}, nil)
	items := []int{1, 2, 3}
	cfg := DefaultConfig()

	results, state := RunShapeB(context.Background(), items, gov, cfg, func(ctx context.Context, n int) (int, error) {
		gov.Feedback(ctx, ratelimit.Feedback{StatusCode: 200})
		return n * 2, nil
	})
	assert.False(t, state.Aborted)
	require.Len(t, results, 3)
	assert.Equal(t, 6, results[2].Value)
}
