package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/hailstone/internal/metrics"
)

// Threshold represents a session assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "run_steps", "run_duration", "runs", "shortcut"
	Aggregate string  // e.g., "p99", "avg", "max", "rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against collected metrics.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "run_steps:p99 < 2000000"    (steps per run)
// - "run_steps:max <= 5000000"   (longest run in steps)
// - "run_duration:avg < 1500"    (run wall time in ms)
// - "runs:count >= 10"           (completed runs)
// - "runs:rate > 5"              (runs per minute)
// - "shortcut:rate > 0.9"        (fraction of runs stopped by the shortcut)
// - "shortcut:count > 0"         (runs stopped by the shortcut)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'run_steps:p99 < 2000000')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: run_steps, run_duration, runs, shortcut)", metric)
	}

	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p99, avg, min, max, rate, count)", aggregate)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "run_steps", "run_duration", "runs", "shortcut":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p99", "avg", "mean", "min", "max", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case "run_steps":
		return extractStepMetric(t.Aggregate, stats)
	case "run_duration":
		return extractDurationMetric(t.Aggregate, stats)
	case "runs":
		return extractRunMetric(t.Aggregate, stats)
	case "shortcut":
		return extractShortcutMetric(t.Aggregate, stats)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractStepMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return float64(stats.P50Steps), nil
	case "p90":
		return float64(stats.P90Steps), nil
	case "p99":
		return float64(stats.P99Steps), nil
	case "avg", "mean":
		return stats.MeanSteps, nil
	case "min":
		return float64(stats.MinSteps), nil
	case "max":
		return float64(stats.MaxSteps), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for run_steps", aggregate)
	}
}

func extractDurationMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return stats.P50DurationMs, nil
	case "p90":
		return stats.P90DurationMs, nil
	case "p99":
		return stats.P99DurationMs, nil
	case "avg", "mean":
		return stats.MeanDurationMs, nil
	case "min":
		return stats.MinDurationMs, nil
	case "max":
		return stats.MaxDurationMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for run_duration", aggregate)
	}
}

func extractRunMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.Runs), nil
	case "rate":
		return stats.RunsPerMinute, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for runs (use 'count' or 'rate')", aggregate)
	}
}

func extractShortcutMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.KnownConvergent), nil
	case "rate":
		if stats.Runs == 0 {
			return 0, nil
		}
		return float64(stats.KnownConvergent) / float64(stats.Runs), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for shortcut (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
