// Package resilience provides fault-tolerance primitives for extraction:
// bounded retries for flaky file access and a panic guard for row
// processing.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrPanic is wrapped by errors returned for recovered panics.
var ErrPanic = errors.New("resilience: panic recovered")

// RetryPolicy configures Retry.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Delay is the wait between attempts.
	Delay time.Duration
	// OnRetry is called before every retry with the failed attempt number.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy tries twice: the original call and one retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 2, Delay: 200 * time.Millisecond}
}

// Retry calls fn until it succeeds, attempts are exhausted or ctx is done.
// It returns the last error.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// RowGuard runs row processing functions and turns panics into errors so a
// single malformed row cannot take down a month worker.
type RowGuard struct {
	processed int64
	failed    int64
	panics    int64

	// OnPanic is called with the row number and recovered value.
	OnPanic func(row int, v any)
}

// NewRowGuard creates a row guard.
func NewRowGuard() *RowGuard {
	return &RowGuard{}
}

// Do runs fn for row. A panic inside fn is recovered and returned as an
// error wrapping ErrPanic.
func (g *RowGuard) Do(row int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&g.panics, 1)
			atomic.AddInt64(&g.failed, 1)
			if g.OnPanic != nil {
				g.OnPanic(row, r)
			}
			err = fmt.Errorf("%w: row %d: %v", ErrPanic, row, r)
		}
	}()

	if err = fn(); err != nil {
		atomic.AddInt64(&g.failed, 1)
		return err
	}
	atomic.AddInt64(&g.processed, 1)
	return nil
}

// Stats returns processing statistics.
func (g *RowGuard) Stats() GuardStats {
	return GuardStats{
		Processed: atomic.LoadInt64(&g.processed),
		Failed:    atomic.LoadInt64(&g.failed),
		Panics:    atomic.LoadInt64(&g.panics),
	}
}

// GuardStats contains row guard statistics.
type GuardStats struct {
	Processed int64
	Failed    int64
	Panics    int64
}
