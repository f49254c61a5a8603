// Package metrics aggregates per-run results across a hailstone session.
//
// The [Collector] keeps step counts and run durations in HDR histograms so
// percentiles stay cheap however many runs accumulate:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//
//	collector.RecordRun(result, elapsed)
//
//	stats := collector.Stats(collector.Elapsed())
//
// [Stats] carries run counts per outcome, step percentiles (P50, P90, P99)
// and duration percentiles, with millisecond fields for JSON and YAML output.
//
// The Collector is safe for concurrent use. The dashboard reads it while
// the run loop records into it.
package metrics
