package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/hailstone/internal/collatz"
)

const (
	// Steps are tracked up to 2^40 with 3 significant figures; longer runs clamp.
	maxTrackedSteps = 1 << 40
	// Durations are tracked from 1µs up to 24h.
	maxTrackedMicros = int64(24 * time.Hour / time.Microsecond)
)

// Collector records per-run metrics in a thread-safe manner.
type Collector struct {
	mu        sync.Mutex
	steps     *hdrhistogram.Histogram
	durations *hdrhistogram.Histogram
	runs      int64
	outcomes  map[collatz.Outcome]int64
	minSteps  uint64
	maxSteps  uint64
	sumSteps  float64
	minDur    time.Duration
	maxDur    time.Duration
	sumDur    time.Duration
	maxDigits int
	start     time.Time
}

// Stats represents aggregated metrics.
type Stats struct {
	Runs            int64            `json:"runs" yaml:"runs"`
	ReachedOne      int64            `json:"reached_one" yaml:"reached_one"`
	KnownConvergent int64            `json:"reached_known_convergent" yaml:"reached_known_convergent"`
	Outcomes        map[string]int64 `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	MinSteps        uint64           `json:"min_steps" yaml:"min_steps"`
	MaxSteps        uint64           `json:"max_steps" yaml:"max_steps"`
	MeanSteps       float64          `json:"mean_steps" yaml:"mean_steps"`
	P50Steps        int64            `json:"p50_steps" yaml:"p50_steps"`
	P90Steps        int64            `json:"p90_steps" yaml:"p90_steps"`
	P99Steps        int64            `json:"p99_steps" yaml:"p99_steps"`
	MaxStartDigits  int              `json:"max_start_digits" yaml:"max_start_digits"`
	RunsPerMinute   float64          `json:"runs_per_minute" yaml:"runs_per_minute"`

	MinDuration  time.Duration `json:"-" yaml:"-"`
	MaxDuration  time.Duration `json:"-" yaml:"-"`
	MeanDuration time.Duration `json:"-" yaml:"-"`
	P50Duration  time.Duration `json:"-" yaml:"-"`
	P90Duration  time.Duration `json:"-" yaml:"-"`
	P99Duration  time.Duration `json:"-" yaml:"-"`
	Duration     time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	MinDurationMs  float64 `json:"min_duration_ms" yaml:"min_duration_ms"`
	MaxDurationMs  float64 `json:"max_duration_ms" yaml:"max_duration_ms"`
	MeanDurationMs float64 `json:"mean_duration_ms" yaml:"mean_duration_ms"`
	P50DurationMs  float64 `json:"p50_duration_ms" yaml:"p50_duration_ms"`
	P90DurationMs  float64 `json:"p90_duration_ms" yaml:"p90_duration_ms"`
	P99DurationMs  float64 `json:"p99_duration_ms" yaml:"p99_duration_ms"`
	DurationMs     float64 `json:"duration_ms" yaml:"duration_ms"`
}

func NewCollector() *Collector {
	return &Collector{
		steps:     hdrhistogram.New(1, maxTrackedSteps, 3),
		durations: hdrhistogram.New(1, maxTrackedMicros, 3),
		outcomes:  make(map[collatz.Outcome]int64),
		start:     time.Now(),
	}
}

// Start resets the reference time used for RunsPerMinute.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Elapsed returns the time since Start.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// RecordRun records one completed run. elapsed covers sampling through termination.
func (c *Collector) RecordRun(res collatz.Result, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	steps := int64(maxTrackedSteps)
	if res.Steps < maxTrackedSteps {
		steps = int64(res.Steps)
	}
	_ = c.steps.RecordValue(steps)

	if elapsed > 0 {
		us := elapsed.Microseconds()
		if us < c.durations.LowestTrackableValue() {
			us = c.durations.LowestTrackableValue()
		}
		if us > c.durations.HighestTrackableValue() {
			us = c.durations.HighestTrackableValue()
		}
		_ = c.durations.RecordValue(us)
	}

	if c.runs == 0 || res.Steps < c.minSteps {
		c.minSteps = res.Steps
	}
	if res.Steps > c.maxSteps {
		c.maxSteps = res.Steps
	}
	c.sumSteps += float64(res.Steps)

	if c.runs == 0 || elapsed < c.minDur {
		c.minDur = elapsed
	}
	if elapsed > c.maxDur {
		c.maxDur = elapsed
	}
	c.sumDur += elapsed

	if res.Start != nil {
		if digits := len(res.Start.String()); digits > c.maxDigits {
			c.maxDigits = digits
		}
	}

	c.runs++
	c.outcomes[res.Outcome]++
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Runs:            c.runs,
		ReachedOne:      c.outcomes[collatz.ReachedOne],
		KnownConvergent: c.outcomes[collatz.ReachedKnownConvergent],
		MinSteps:        c.minSteps,
		MaxSteps:        c.maxSteps,
		MaxStartDigits:  c.maxDigits,
		MinDuration:     c.minDur,
		MaxDuration:     c.maxDur,
	}

	if c.runs > 0 {
		stats.MeanSteps = c.sumSteps / float64(c.runs)
		stats.MeanDuration = time.Duration(int64(c.sumDur) / c.runs)
		stats.Outcomes = make(map[string]int64, len(c.outcomes))
		for outcome, n := range c.outcomes {
			stats.Outcomes[outcome.String()] = n
		}
	}

	if c.steps.TotalCount() > 0 {
		stats.P50Steps = c.steps.ValueAtQuantile(50)
		stats.P90Steps = c.steps.ValueAtQuantile(90)
		stats.P99Steps = c.steps.ValueAtQuantile(99)
	}
	if c.durations.TotalCount() > 0 {
		stats.P50Duration = time.Duration(c.durations.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Duration = time.Duration(c.durations.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Duration = time.Duration(c.durations.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinDurationMs = toMs(stats.MinDuration)
	stats.MaxDurationMs = toMs(stats.MaxDuration)
	stats.MeanDurationMs = toMs(stats.MeanDuration)
	stats.P50DurationMs = toMs(stats.P50Duration)
	stats.P90DurationMs = toMs(stats.P90Duration)
	stats.P99DurationMs = toMs(stats.P99Duration)

	stats.Duration = elapsed
	stats.DurationMs = toMs(elapsed)
	if elapsed > 0 && c.runs > 0 {
		stats.RunsPerMinute = float64(c.runs) / elapsed.Minutes()
	}

	return stats
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
