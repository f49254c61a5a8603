package runner_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/hailstone/internal/collatz"
	"github.com/torosent/hailstone/internal/runner"
)

// cycleSampler hands out its values in order, wrapping around.
type cycleSampler struct {
	values []int64
	next   int
}

func (s *cycleSampler) Sample() *big.Int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return big.NewInt(v)
}

// recordingReporter keeps every callback for inspection.
type recordingReporter struct {
	mu       sync.Mutex
	started  []ulid.ULID
	starts   []int64
	reports  []runner.Report
	onFinish func(runner.Report) error
}

func (r *recordingReporter) RunStarted(id ulid.ULID, index int, start *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, id)
	r.starts = append(r.starts, start.Int64())
}

func (r *recordingReporter) RunFinished(rep runner.Report) error {
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()
	if r.onFinish != nil {
		return r.onFinish(rep)
	}
	return nil
}

type countingRecorder struct {
	runs  int
	steps uint64
}

func (c *countingRecorder) RecordRun(res collatz.Result, _ time.Duration) {
	c.runs++
	c.steps += res.Steps
}

func TestRunnerRespectsRunLimit(t *testing.T) {
	rep := &recordingReporter{}
	rec := &countingRecorder{}
	r := runner.New(runner.Options{
		Sampler:  &cycleSampler{values: []int64{6, 27, 1}},
		Iterator: collatz.New(collatz.Options{}),
		Runs:     3,
		Reporter: rep,
		Recorder: rec,
	})

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Runs != 3 || summary.Interrupted {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(rep.reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(rep.reports))
	}

	wantSteps := []uint64{8, 111, 0}
	for i, report := range rep.reports {
		if report.Index != i+1 {
			t.Errorf("report %d: index = %d", i, report.Index)
		}
		if report.Result.Steps != wantSteps[i] {
			t.Errorf("report %d: steps = %d, want %d", i, report.Result.Steps, wantSteps[i])
		}
		if report.ID != rep.started[i] {
			t.Errorf("report %d: id %s does not match started id %s", i, report.ID, rep.started[i])
		}
		if i > 0 && report.ID.Compare(rep.reports[i-1].ID) <= 0 {
			t.Errorf("run ids should increase: %s then %s", rep.reports[i-1].ID, report.ID)
		}
	}
	if rec.runs != 3 || rec.steps != 119 {
		t.Errorf("recorder saw %d runs / %d steps, want 3 / 119", rec.runs, rec.steps)
	}
}

func TestRunnerWaitsBetweenRuns(t *testing.T) {
	delay := 30 * time.Millisecond
	r := runner.New(runner.Options{
		Sampler:  &cycleSampler{values: []int64{6}},
		Iterator: collatz.New(collatz.Options{}),
		Runs:     3,
		Delay:    delay,
	})

	start := time.Now()
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Two gaps between three runs, no trailing pause.
	if elapsed := time.Since(start); elapsed < 2*delay || elapsed > 2*delay+time.Second {
		t.Fatalf("unexpected session length %s", elapsed)
	}
	if summary.Duration <= 0 {
		t.Fatal("summary duration not recorded")
	}
}

func TestRunnerCancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep := &recordingReporter{onFinish: func(runner.Report) error {
		cancel()
		return nil
	}}
	r := runner.New(runner.Options{
		Sampler:  &cycleSampler{values: []int64{27}},
		Iterator: collatz.New(collatz.Options{}),
		Delay:    time.Hour,
		Reporter: rep,
	})

	done := make(chan struct{})
	var summary runner.Summary
	var err error
	go func() {
		summary, err = r.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
	if err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if summary.Runs != 1 || !summary.Interrupted {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunnerCancelDuringRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it := runner.IteratorFunc(func(ctx context.Context, start *big.Int) (collatz.Result, error) {
		cancel()
		<-ctx.Done()
		return collatz.Result{Start: start}, ctx.Err()
	})
	rec := &countingRecorder{}
	r := runner.New(runner.Options{
		Sampler:  &cycleSampler{values: []int64{5}},
		Iterator: it,
		Recorder: rec,
	})

	summary, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !summary.Interrupted || summary.Runs != 0 || rec.runs != 0 {
		t.Fatalf("interrupted run should not be counted: %+v, recorded %d", summary, rec.runs)
	}
}

func TestRunnerPropagatesDivergence(t *testing.T) {
	rep := &recordingReporter{}
	r := runner.New(runner.Options{
		Sampler:  &cycleSampler{values: []int64{27}},
		Iterator: collatz.New(collatz.Options{StepCeiling: 10}),
		Reporter: rep,
	})

	summary, err := r.Run(context.Background())
	if !errors.Is(err, collatz.ErrDiverging) {
		t.Fatalf("Run() error = %v, want ErrDiverging", err)
	}
	var div *collatz.DivergingError
	if !errors.As(err, &div) || div.Ceiling != 10 {
		t.Fatalf("expected DivergingError with ceiling 10, got %v", err)
	}
	if summary.Runs != 0 || summary.Interrupted {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(rep.started) != 1 || len(rep.reports) != 0 {
		t.Fatalf("diverging run should start but never finish: %d started, %d finished", len(rep.started), len(rep.reports))
	}
}

func TestRunnerReporterErrorStopsSession(t *testing.T) {
	boom := errors.New("stdout closed")
	r := runner.New(runner.Options{
		Sampler:  &cycleSampler{values: []int64{6}},
		Iterator: collatz.New(collatz.Options{}),
		Reporter: &recordingReporter{onFinish: func(runner.Report) error { return boom }},
	})

	summary, err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if summary.Runs != 1 {
		t.Fatalf("expected the reported run to count, got %d", summary.Runs)
	}
}

func TestRunnerRequiresCollaborators(t *testing.T) {
	if _, err := runner.New(runner.Options{Iterator: collatz.New(collatz.Options{})}).Run(context.Background()); !errors.Is(err, runner.ErrNoSampler) {
		t.Errorf("expected ErrNoSampler, got %v", err)
	}
	if _, err := runner.New(runner.Options{Sampler: &cycleSampler{values: []int64{1}}}).Run(context.Background()); !errors.Is(err, runner.ErrNoIterator) {
		t.Errorf("expected ErrNoIterator, got %v", err)
	}
}

func TestRunIDReachesIterator(t *testing.T) {
	rep := &recordingReporter{}
	var seen ulid.ULID
	it := runner.IteratorFunc(func(ctx context.Context, start *big.Int) (collatz.Result, error) {
		id, ok := runner.RunIDFromContext(ctx)
		if !ok {
			t.Error("run id missing from context")
		}
		seen = id
		return collatz.New(collatz.Options{}).Run(ctx, start)
	})

	r := runner.New(runner.Options{
		Sampler:  &cycleSampler{values: []int64{3}},
		Iterator: it,
		Runs:     1,
		Reporter: rep,
	})
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if seen != rep.started[0] {
		t.Fatalf("iterator saw id %s, reporter saw %s", seen, rep.started[0])
	}
	if _, ok := runner.RunIDFromContext(context.Background()); ok {
		t.Fatal("background context should not carry a run id")
	}
}

// slowSampler sleeps before handing out its value.
type slowSampler struct {
	delay time.Duration
	value int64
}

func (s *slowSampler) Sample() *big.Int {
	time.Sleep(s.delay)
	return big.NewInt(s.value)
}

type elapsedRecorder struct {
	elapsed []time.Duration
}

func (e *elapsedRecorder) RecordRun(_ collatz.Result, elapsed time.Duration) {
	e.elapsed = append(e.elapsed, elapsed)
}

func TestRunnerElapsedIncludesSampling(t *testing.T) {
	const delay = 200 * time.Millisecond
	rep := &recordingReporter{}
	rec := &elapsedRecorder{}
	r := runner.New(runner.Options{
		Sampler:  &slowSampler{delay: delay, value: 27},
		Iterator: collatz.New(collatz.Options{}),
		Runs:     1,
		Reporter: rep,
		Recorder: rec,
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rep.reports) != 1 || len(rec.elapsed) != 1 {
		t.Fatalf("expected one report and one recording, got %d and %d", len(rep.reports), len(rec.elapsed))
	}

	got := rep.reports[0]
	if got.Elapsed < delay {
		t.Errorf("report elapsed = %v, want at least %v", got.Elapsed, delay)
	}
	if got.Result.Elapsed >= delay {
		t.Errorf("engine elapsed = %v, should not include sampling", got.Result.Elapsed)
	}
	if rec.elapsed[0] != got.Elapsed {
		t.Errorf("recorded elapsed = %v, reported %v", rec.elapsed[0], got.Elapsed)
	}
}
