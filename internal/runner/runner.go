package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/hailstone/internal/collatz"
)

var (
	ErrNoSampler  = errors.New("runner: sampler is required")
	ErrNoIterator = errors.New("runner: iterator is required")
)

// Report is what the loop hands to the Reporter after each completed run.
type Report struct {
	ID      ulid.ULID
	Index   int // 1-based position in the session
	Result  collatz.Result
	Elapsed time.Duration // from the start of sampling to termination
}

// Summary captures the session outcome.
type Summary struct {
	Runs        int
	Interrupted bool
	Duration    time.Duration
}

// Runner executes runs one after another.
type Runner struct {
	opt Options
	ids *idSource
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, ids: newIDSource(opt.Entropy)}
}

// Run executes the session. Cancelling ctx stops the loop between or during
// runs and is not treated as an error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.opt.Sampler == nil {
		return Summary{}, ErrNoSampler
	}
	if r.opt.Iterator == nil {
		return Summary{}, ErrNoIterator
	}

	began := time.Now()
	var summary Summary
	finish := func(err error) (Summary, error) {
		summary.Duration = time.Since(began)
		return summary, err
	}

	for index := 1; r.opt.Runs == 0 || index <= r.opt.Runs; index++ {
		if index > 1 && !r.wait(ctx) {
			summary.Interrupted = true
			return finish(nil)
		}
		if ctx.Err() != nil {
			summary.Interrupted = true
			return finish(nil)
		}

		id, err := r.ids.next(time.Now())
		if err != nil {
			return finish(fmt.Errorf("run %d: id: %w", index, err))
		}
		runStart := time.Now()
		start := r.opt.Sampler.Sample()
		r.opt.Reporter.RunStarted(id, index, start)

		res, err := r.opt.Iterator.Run(WithRunID(ctx, id), start)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				summary.Interrupted = true
				return finish(nil)
			}
			return finish(fmt.Errorf("run %d: %w", index, err))
		}

		elapsed := time.Since(runStart)

		summary.Runs++
		if r.opt.Recorder != nil {
			r.opt.Recorder.RecordRun(res, elapsed)
		}
		if err := r.opt.Reporter.RunFinished(Report{ID: id, Index: index, Result: res, Elapsed: elapsed}); err != nil {
			return finish(fmt.Errorf("report run %d: %w", index, err))
		}
	}
	return finish(nil)
}

// wait sleeps for the configured delay and reports whether the loop should continue.
func (r *Runner) wait(ctx context.Context) bool {
	if r.opt.Delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(r.opt.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
