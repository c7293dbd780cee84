// Package scheduler implements the two work-distribution shapes named in
// spec.md §4.4/§7 (C4): Shape A, a plain parallel worker pool for
// independent per-parcel work (NAIP scan, NDVI slope), and
// Shape B, a single-credential serialized queue for work that must respect
// one external rate governor (USPS vacancy checks) plus the per-consumer
// circuit breaker (pause at 10 consecutive failures, abort at 20).
//
// Shape A's worker-pool/WaitGroup idiom is adapted
// from engine/internal/pipeline/pipeline.go's stage workers, generalized
// from the teacher's fixed discovery/extraction/processing/output stages to
// a single generic stage since every distressscan pass is a flat
// map-over-parcels rather than a multi-stage crawl. Shape B's circuit
// breaker is grounded on internal/ratelimit.Governor.ConsecutiveFailures,
// with the 10/20 thresholds taken from spec.md §4.4 and
// original_source/scripts/batch_usps_enrich.py's shared stats/shutdown_event
// pattern (a consecutive-failure run there is treated as a sign the
// credential or endpoint is broken, not merely rate-limited).
package scheduler

import (
	"context"
	"sync"
	"time"

	"distressscan/internal/ratelimit"
)

// Config tunes both shapes.
type Config struct {
	Workers               int
	CircuitWarnThreshold  int
	CircuitAbortThreshold int
	CircuitPauseDuration  time.Duration
}

// DefaultConfig mirrors spec.md §4.4's defaults.
func DefaultConfig() Config {
	return Config{
		Workers:               10,
		CircuitWarnThreshold:  10,
		CircuitAbortThreshold: 20,
		CircuitPauseDuration:  5 * time.Minute,
	}
}

// Result pairs one input item's index with its outcome, so callers can
// correlate failures back to the originating parcel without needing Out to
// carry identity itself.
type Result[Out any] struct {
	Index int
	Value Out
	Err   error
}

// RunShapeA fans items out across cfg.Workers goroutines, each calling fn
// independently; there is no shared rate limiter or circuit breaker because
// Shape A work (aerial imagery, historical slope) hits per-request ArcGIS
// endpoints with no per-account quota to protect. Although workers complete
// out of order, each result is stored at its input's slice position, so the
// returned slice is in input order and Index equals that position.
func RunShapeA[In, Out any](ctx context.Context, items []In, cfg Config, fn func(context.Context, In) (Out, error)) []Result[Out] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) && len(items) > 0 {
		workers = len(items)
	}

	type job struct {
		idx  int
		item In
	}
	jobs := make(chan job)
	out := make([]Result[Out], len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					out[j.idx] = Result[Out]{Index: j.idx, Err: ctx.Err()}
					continue
				}
				v, err := fn(ctx, j.item)
				out[j.idx] = Result[Out]{Index: j.idx, Value: v, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- job{idx: i, item: item}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return out
}

// CircuitState reports why Shape B stopped early, if it did.
type CircuitState struct {
	Paused  bool
	Aborted bool
	Reason  string
}

// RunShapeB serializes items one at a time through fn, which is expected to
// call gov.Acquire/gov.Feedback itself (fn owns the credential's governor —
// Shape B only watches ConsecutiveFailures to decide whether to pause or
// abort the run). Processing stops (without error) once ctx is done, once
// CircuitAbortThreshold consecutive failures are observed, or once all
// items are processed. A CircuitWarnThreshold breach sleeps
// CircuitPauseDuration before continuing, mirroring a carrier/API outage
// that a short pause might ride out.
func RunShapeB[In, Out any](ctx context.Context, items []In, gov *ratelimit.Governor, cfg Config, fn func(context.Context, In) (Out, error)) ([]Result[Out], CircuitState) {
	out := make([]Result[Out], 0, len(items))
	paused := false

	for i, item := range items {
		if ctx.Err() != nil {
			return out, CircuitState{Reason: "context_cancelled"}
		}

		v, err := fn(ctx, item)
		out = append(out, Result[Out]{Index: i, Value: v, Err: err})

		failures := gov.ConsecutiveFailures()
		if failures >= cfg.CircuitAbortThreshold {
			return out, CircuitState{Aborted: true, Reason: "consecutive_failures_exceeded_abort_threshold"}
		}
		if failures >= cfg.CircuitWarnThreshold && !paused {
			paused = true
			select {
			case <-time.After(cfg.CircuitPauseDuration):
			case <-ctx.Done():
				return out, CircuitState{Reason: "context_cancelled"}
			}
		} else if failures == 0 {
			paused = false
		}
	}
	return out, CircuitState{}
}

// RunShapeBQueue runs the same serialized, circuit-broken loop as RunShapeB,
// but pulls items from a channel shared by other concurrently-running
// credential consumers rather than a fixed per-credential slice. This gives
// Shape B the "N consumers pull from one shared queue" dynamic load-balancing
// spec.md §4.4 describes: a fast/lightly-throttled credential drains more of
// the queue than a credential that is paused or backing off. onResult is
// called synchronously for every processed item so the caller can flush and
// journal incrementally instead of buffering the whole run in memory.
func RunShapeBQueue[In, Out any](ctx context.Context, queue <-chan In, gov *ratelimit.Governor, cfg Config, fn func(context.Context, In) (Out, error), onResult func(Result[Out])) CircuitState {
	paused := false
	for {
		select {
		case item, ok := <-queue:
			if !ok {
				return CircuitState{}
			}
			if ctx.Err() != nil {
				return CircuitState{Reason: "context_cancelled"}
			}

			v, err := fn(ctx, item)
			onResult(Result[Out]{Value: v, Err: err})

			failures := gov.ConsecutiveFailures()
			if failures >= cfg.CircuitAbortThreshold {
				return CircuitState{Aborted: true, Reason: "consecutive_failures_exceeded_abort_threshold"}
			}
			if failures >= cfg.CircuitWarnThreshold && !paused {
				paused = true
				select {
				case <-time.After(cfg.CircuitPauseDuration):
				case <-ctx.Done():
					return CircuitState{Reason: "context_cancelled"}
				}
			} else if failures == 0 {
				paused = false
			}
		case <-ctx.Done():
			return CircuitState{Reason: "context_cancelled"}
		}
	}
}
