package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/hailstone/internal/collatz"
	"github.com/torosent/hailstone/internal/config"
	"github.com/torosent/hailstone/internal/dashboard"
	"github.com/torosent/hailstone/internal/metrics"
	"github.com/torosent/hailstone/internal/output"
	"github.com/torosent/hailstone/internal/runner"
	"github.com/torosent/hailstone/internal/sampler"
	"github.com/torosent/hailstone/internal/threshold"
	"github.com/torosent/hailstone/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, stderr)

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	smp, err := sampler.New(sampler.Options{
		Range:           sampler.Range{Lower: cfg.Lower, Upper: cfg.Upper},
		MaxLengthJitter: cfg.MaxLengthJitter,
		Seed:            cfg.Seed,
	})
	if err != nil {
		return err
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.NewCollector()

	var (
		dash     *dashboard.Dashboard
		progress *output.ProgressReporter
		printer  *output.RunPrinter
		reporter runner.Reporter
		hook     func(collatz.Progress)
	)
	switch {
	case cfg.Dashboard:
		dash, err = dashboard.New(collector, dashboard.SessionConfig{
			Lower:       cfg.Lower,
			Upper:       cfg.Upper,
			Runs:        cfg.Runs,
			Delay:       cfg.Delay,
			Shortcut:    cfg.Shortcut,
			Trace:       cfg.Trace,
			StepCeiling: cfg.StepCeiling,
			ConfigFile:  cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		reporter = dash
		hook = dash.Progress
	default:
		opts := output.RunPrinterOptions{Format: cfg.Format, Clear: cfg.Clear, Trace: cfg.Trace}
		if cfg.Format == config.OutputFormatText && cfg.ProgressInterval > 0 {
			progress = output.NewProgressReporter(stderr)
			hook = progress.Update
			opts.BeforeWrite = progress.Clear
		}
		printer = output.NewRunPrinter(stdout, opts)
		reporter = printer
	}

	engine := collatz.New(collatz.Options{
		Threshold:        cfg.Lower,
		Shortcut:         cfg.Shortcut,
		Trace:            cfg.Trace,
		StepCeiling:      cfg.StepCeiling,
		Progress:         hook,
		ProgressInterval: cfg.ProgressInterval,
	})

	var it runner.Iterator = engine
	it = runner.WithLogging(it, logger)
	if provider.Enabled() {
		it = tracing.WithTracing(it, provider.Tracer())
	}

	r := runner.New(runner.Options{
		Sampler:  smp,
		Iterator: it,
		Runs:     cfg.Runs,
		Delay:    cfg.Delay,
		Reporter: reporter,
		Recorder: collector,
	})

	logger.Info("session starting",
		"lower_bits", cfg.Lower.BitLen(),
		"upper_bits", cfg.Upper.BitLen(),
		"runs", cfg.Runs,
		"shortcut", cfg.Shortcut,
		"trace", cfg.Trace,
		"tracing", provider.Enabled(),
	)

	if dash != nil {
		dash.Start()
	}

	// Mark the actual start so RunsPerMinute excludes setup time.
	collector.Start()
	summary, runErr := r.Run(ctx)

	var stats metrics.Stats
	if dash != nil {
		dash.Stop()
		stats = dash.GetFinalStats()
	} else {
		stats = collector.Stats(summary.Duration)
	}
	if progress != nil {
		progress.Clear()
	}
	if printer != nil {
		if err := printer.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}

	if summary.Interrupted {
		logger.Info("session interrupted", "runs", summary.Runs)
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(stats)
	if err := printSummary(stdout, cfg.Format, stats, results); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if !threshold.AllPassed(results) {
		return fmt.Errorf("%d of %d thresholds failed", countFailed(results), len(results))
	}
	return nil
}

func printSummary(w io.Writer, format config.OutputFormat, stats metrics.Stats, results []threshold.Result) error {
	switch format {
	case config.OutputFormatJSON:
		return output.PrintJSONReport(w, stats, results)
	case config.OutputFormatYAML:
		return output.PrintYAMLReport(w, stats, results)
	default:
		output.PrintReport(w, stats, results)
		return nil
	}
}

func countFailed(results []threshold.Result) int {
	n := 0
	for _, r := range results {
		if !r.Pass {
			n++
		}
	}
	return n
}
