// Package retry executes an operation with bounded retries and exponential
// backoff. Errors marked permanent abort immediately without consuming the
// remaining retry budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Permanent wraps err so the runner will not retry it. Classification happens
// once, at the boundary where the delivery client's error is interpreted.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) is non-retryable.
func IsPermanent(err error) bool {
	var pe interface{ PermanentError() bool }
	return errors.As(err, &pe) && pe.PermanentError()
}

type permanentError struct{ err error }

func (e permanentError) Error() string        { return fmt.Sprintf("permanent: %v", e.err) }
func (e permanentError) Unwrap() error        { return e.err }
func (e permanentError) PermanentError() bool { return true }

// Runner retries an operation up to MaxRetries extra attempts with
// base*2^attempt backoff, ±Jitter, capped at MaxDelay.
type Runner struct {
	MaxRetries int
	Base       time.Duration
	MaxDelay   time.Duration
	Jitter     float64 // fraction, e.g. 0.25 for ±25%

	// Rand is only swapped in tests; nil means the shared source.
	Rand *rand.Rand
	// Sleep is only swapped in tests; nil means a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default mirrors the sending path's usual budget.
func Default() *Runner {
	return &Runner{
		MaxRetries: 3,
		Base:       2 * time.Second,
		MaxDelay:   60 * time.Second,
		Jitter:     0.25,
	}
}

// Run invokes op, retrying on retryable errors. It surfaces the last error
// on exhaustion; it never swallows failures.
func (r *Runner) Run(ctx context.Context, op func() error) error {
	var last error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = op()
		if last == nil {
			return nil
		}
		if IsPermanent(last) {
			return last
		}
		if attempt >= r.MaxRetries {
			return last
		}

		if err := r.sleep(ctx, r.delay(attempt)); err != nil {
			return err
		}
	}
}

func (r *Runner) delay(attempt int) time.Duration {
	base := r.Base
	if base <= 0 {
		base = 2 * time.Second
	}
	maxD := r.MaxDelay
	if maxD <= 0 {
		maxD = 60 * time.Second
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxD {
			d = maxD
			break
		}
	}

	if r.Jitter > 0 {
		f := r.randFloat()
		d = time.Duration(float64(d) * (1 + (f*2-1)*r.Jitter))
		if d < 0 {
			d = 0
		}
	}
	if d > maxD {
		d = maxD
	}
	return d
}

func (r *Runner) randFloat() float64 {
	if r.Rand != nil {
		return r.Rand.Float64()
	}
	return rand.Float64()
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}
