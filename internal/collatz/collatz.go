package collatz

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/time/rate"
)

// MaxSafeSteps is the largest integer a float64 represents exactly (2^53 - 1).
const MaxSafeSteps uint64 = 1<<53 - 1

// DefaultProgressInterval throttles Options.Progress callbacks.
const DefaultProgressInterval = time.Second

// ctxCheckMask sets how often (in steps) the context and progress hook are polled.
const ctxCheckMask = 1<<12 - 1

var (
	one   = big.NewInt(1)
	three = big.NewInt(3)
)

// Outcome is the terminal state of a completed run.
type Outcome int

const (
	ReachedOne Outcome = iota + 1
	ReachedKnownConvergent
)

func (o Outcome) String() string {
	switch o {
	case ReachedOne:
		return "reached_one"
	case ReachedKnownConvergent:
		return "reached_known_convergent"
	default:
		return "unknown"
	}
}

// Valid reports whether o is one of the defined outcomes.
func (o Outcome) Valid() bool {
	return o == ReachedOne || o == ReachedKnownConvergent
}

func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid outcome %d", int(o))
	}
	return []byte(o.String()), nil
}

// Stepper advances n by one transition in place.
type Stepper interface {
	Step(n *big.Int)
}

// Map is the Collatz map.
type Map struct{}

func (Map) Step(n *big.Int) {
	if n.Bit(0) == 1 {
		n.Mul(n, three)
		n.Add(n, one)
		return
	}
	n.Rsh(n, 1)
}

// Progress is a snapshot of a run in flight.
type Progress struct {
	Steps     uint64
	Bits      int // bit length of the current value
	StartBits int
	Elapsed   time.Duration
}

// Options configure a Runner.
type Options struct {
	Threshold        *big.Int       // known-convergent bound; values <= Threshold stop the run when Shortcut is set
	Shortcut         bool           // enable the known-convergent stop condition
	Trace            bool           // record every visited value
	StepCeiling      uint64         // 0 means MaxSafeSteps
	Stepper          Stepper        // nil means Map
	Progress         func(Progress) // optional, called at most once per ProgressInterval
	ProgressInterval time.Duration  // 0 means DefaultProgressInterval
}

func (o *Options) normalize() {
	if o.StepCeiling == 0 {
		o.StepCeiling = MaxSafeSteps
	}
	if o.Stepper == nil {
		o.Stepper = Map{}
	}
	if o.Threshold == nil {
		o.Shortcut = false
	} else {
		o.Threshold = new(big.Int).Set(o.Threshold)
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
}

// Result describes one completed run.
type Result struct {
	Start    *big.Int
	Steps    uint64
	Terminal *big.Int
	Outcome  Outcome
	Elapsed  time.Duration
	Trace    []*big.Int // nil unless Options.Trace
}

// Runner iterates the Collatz map under a fixed set of stop conditions.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// StepCeiling returns the effective ceiling.
func (r *Runner) StepCeiling() uint64 {
	return r.opt.StepCeiling
}

// Run iterates from start until a stop condition holds. It returns a
// *DivergingError when the ceiling is reached first, and ctx.Err() if the
// context ends mid-run. The partial Result is returned alongside either error.
func (r *Runner) Run(ctx context.Context, start *big.Int) (Result, error) {
	began := time.Now()
	res := Result{Start: new(big.Int).Set(start)}
	if start.Sign() <= 0 {
		return res, fmt.Errorf("%w: %s", ErrNonPositive, start)
	}

	cur := new(big.Int).Set(start)
	if r.opt.Trace {
		res.Trace = []*big.Int{new(big.Int).Set(cur)}
	}

	if cur.Cmp(one) == 0 {
		res.Terminal = cur
		res.Outcome = ReachedOne
		res.Elapsed = time.Since(began)
		return res, nil
	}

	var gate *rate.Sometimes
	if r.opt.Progress != nil {
		gate = &rate.Sometimes{Interval: r.opt.ProgressInterval}
	}
	startBits := start.BitLen()

	var steps uint64
	for {
		r.opt.Stepper.Step(cur)
		steps++
		if r.opt.Trace {
			res.Trace = append(res.Trace, new(big.Int).Set(cur))
		}

		if r.opt.Shortcut && cur.Cmp(r.opt.Threshold) <= 0 {
			res.Outcome = ReachedKnownConvergent
			break
		}
		if cur.Cmp(one) == 0 {
			res.Outcome = ReachedOne
			break
		}
		if steps >= r.opt.StepCeiling {
			res.Steps = steps
			res.Terminal = cur
			res.Elapsed = time.Since(began)
			return res, &DivergingError{Start: res.Start, Ceiling: r.opt.StepCeiling}
		}

		if steps&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				res.Steps = steps
				res.Terminal = cur
				res.Elapsed = time.Since(began)
				return res, err
			}
			if gate != nil {
				gate.Do(func() {
					r.opt.Progress(Progress{
						Steps:     steps,
						Bits:      cur.BitLen(),
						StartBits: startBits,
						Elapsed:   time.Since(began),
					})
				})
			}
		}
	}

	res.Steps = steps
	res.Terminal = cur
	res.Elapsed = time.Since(began)
	return res, nil
}
