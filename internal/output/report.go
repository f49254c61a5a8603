package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/torosent/hailstone/internal/metrics"
	"github.com/torosent/hailstone/internal/threshold"
)

// SessionReport is the structured end-of-session summary.
type SessionReport struct {
	Summary    metrics.Stats     `json:"summary" yaml:"summary"`
	Thresholds *ThresholdSummary `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// ThresholdSummary aggregates threshold outcomes.
type ThresholdSummary struct {
	Total   int                   `json:"total" yaml:"total"`
	Passed  int                   `json:"passed" yaml:"passed"`
	Failed  int                   `json:"failed" yaml:"failed"`
	Results []ThresholdResultJSON `json:"results" yaml:"results"`
}

// ThresholdResultJSON is one evaluated threshold.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Metric    string  `json:"metric" yaml:"metric"`
	Aggregate string  `json:"aggregate" yaml:"aggregate"`
	Operator  string  `json:"operator" yaml:"operator"`
	Expected  float64 `json:"expected" yaml:"expected"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
}

// NewSessionReport combines stats and threshold results.
func NewSessionReport(stats metrics.Stats, results []threshold.Result) SessionReport {
	return SessionReport{Summary: stats, Thresholds: summarizeThresholds(results)}
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// PrintReport outputs a human-readable session summary.
func PrintReport(w io.Writer, stats metrics.Stats, results []threshold.Result) {
	fmt.Fprintln(w, "\n--- Session Summary ---")
	fmt.Fprintf(w, "Runs:              %s\n", FormatCount(uint64(stats.Runs)))
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Runs/min:          %.2f\n", stats.RunsPerMinute)
	if stats.Runs == 0 {
		printThresholds(w, results)
		return
	}
	fmt.Fprintf(w, "Largest start:     %s digits\n", FormatCount(uint64(stats.MaxStartDigits)))

	fmt.Fprintln(w, "\nOutcomes:")
	for _, row := range metrics.FlattenOutcomes(stats.Outcomes) {
		fmt.Fprintf(w, "  %-26s %s\n", row.Outcome+":", FormatCount(uint64(row.Count)))
	}

	fmt.Fprintln(w, "\nSteps:")
	fmt.Fprintf(w, "  Min:             %s\n", FormatCount(stats.MinSteps))
	fmt.Fprintf(w, "  Max:             %s\n", FormatCount(stats.MaxSteps))
	fmt.Fprintf(w, "  Mean:            %s\n", FormatCount(uint64(stats.MeanSteps+0.5)))
	fmt.Fprintf(w, "  P50:             %s\n", FormatCount(uint64(stats.P50Steps)))
	fmt.Fprintf(w, "  P90:             %s\n", FormatCount(uint64(stats.P90Steps)))
	fmt.Fprintf(w, "  P99:             %s\n", FormatCount(uint64(stats.P99Steps)))

	fmt.Fprintln(w, "\nRun Time:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinDuration)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxDuration)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanDuration)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Duration)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Duration)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Duration)

	printThresholds(w, results)
}

func printThresholds(w io.Writer, results []threshold.Result) {
	summary := summarizeThresholds(results)
	if summary == nil {
		return
	}
	fmt.Fprintf(w, "\nThresholds (%d passed, %d failed):\n", summary.Passed, summary.Failed)
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// PrintJSONReport outputs the session summary as a single JSON line, so a
// stream of run records followed by the summary stays newline-delimited.
func PrintJSONReport(w io.Writer, stats metrics.Stats, results []threshold.Result) error {
	return json.NewEncoder(w).Encode(NewSessionReport(stats, results))
}

// PrintYAMLReport outputs a YAML-formatted session summary. The explicit
// document marker keeps it separate from a preceding stream of run records.
func PrintYAMLReport(w io.Writer, stats metrics.Stats, results []threshold.Result) error {
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewSessionReport(stats, results)); err != nil {
		return err
	}
	return enc.Close()
}
