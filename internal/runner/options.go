package runner

import (
	"context"
	"io"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/hailstone/internal/collatz"
)

// Sampler produces the start value for a run.
type Sampler interface {
	Sample() *big.Int
}

// Iterator runs one sequence from start to termination.
type Iterator interface {
	Run(ctx context.Context, start *big.Int) (collatz.Result, error)
}

// IteratorFunc adapts a function to the Iterator interface.
type IteratorFunc func(ctx context.Context, start *big.Int) (collatz.Result, error)

func (f IteratorFunc) Run(ctx context.Context, start *big.Int) (collatz.Result, error) {
	return f(ctx, start)
}

// Reporter receives run boundaries. RunFinished is called once per completed
// run, before the inter-run delay starts; an error from it ends the session.
type Reporter interface {
	RunStarted(id ulid.ULID, index int, start *big.Int)
	RunFinished(rep Report) error
}

// Recorder accumulates completed runs, typically a *metrics.Collector.
type Recorder interface {
	RecordRun(res collatz.Result, elapsed time.Duration)
}

// Options configure the Runner.
type Options struct {
	Sampler  Sampler       // start value source (required)
	Iterator Iterator      // sequence engine (required)
	Runs     int           // runs before returning (0 means until ctx is cancelled)
	Delay    time.Duration // pause between consecutive runs
	Reporter Reporter      // optional
	Recorder Recorder      // optional
	Entropy  io.Reader     // optional ULID entropy; injected by tests
}

func (o *Options) normalize() {
	if o.Runs < 0 {
		o.Runs = 0
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Reporter == nil {
		o.Reporter = nopReporter{}
	}
}

type nopReporter struct{}

func (nopReporter) RunStarted(ulid.ULID, int, *big.Int) {}
func (nopReporter) RunFinished(Report) error            { return nil }
