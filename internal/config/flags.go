package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hailstone",
		Short:         "Iterate the Collatz map from huge random start values",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Range flags
	flags.String("lower", DefaultLowerExpr, "Lower bound of the sampled range; also the known-convergent threshold (e.g. 2^68)")
	flags.String("upper", DefaultUpperExpr, "Upper bound of the sampled range (e.g. 2^90000)")
	flags.Int64("seed", 0, "Random seed for sampling (0 seeds from the clock)")
	flags.Int("max-length-jitter", DefaultMaxLengthJitter, "Maximum digits removed from the sampling string per draw (0 disables)")

	// Run control flags
	flags.DurationP("delay", "d", DefaultDelay, "Pause between runs (e.g. 2s, 500ms)")
	flags.IntP("runs", "n", 0, "Number of runs before exiting (0 means run until interrupted)")
	flags.Bool("shortcut", true, "Stop once the value drops to or below the lower bound")
	flags.Bool("trace", false, "Record and print every visited value (implies --runs=1 unless set)")
	flags.Uint64("step-ceiling", maxSafeSteps, "Abort a run that has not terminated after this many steps")

	// Output flags
	flags.String("format", string(OutputFormatText), "Run report format: 'text', 'json', or 'yaml'")
	flags.Bool("json-output", false, "Shorthand for --format=json")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("clear", false, "Clear the terminal before each run (text format only)")
	flags.Duration("progress-interval", DefaultProgressInterval, "Minimum interval between in-run progress updates")
	flags.StringSlice("threshold", nil, "Session thresholds (repeatable, e.g., 'run_steps:p99 < 2000000')")
	flags.String("config", "", "Path to configuration file (JSON, YAML, or TOML)")

	// Logging flags
	flags.String("log-level", "info", "Log level: debug, info, warn, or error")
	flags.String("log-format", "text", "Log format: text or json")

	// Tracing flags
	flags.Bool("tracing", false, "Export one OpenTelemetry span per run")
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (host:port)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of runs to trace (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("lower") {
		val, err := fs.GetString("lower")
		if err != nil {
			return err
		}
		lower, err := ParseBigInt(val)
		if err != nil {
			return fmt.Errorf("lower: %w", err)
		}
		cfg.Lower = lower
	}
	if fs.Changed("upper") {
		val, err := fs.GetString("upper")
		if err != nil {
			return err
		}
		upper, err := ParseBigInt(val)
		if err != nil {
			return fmt.Errorf("upper: %w", err)
		}
		cfg.Upper = upper
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("max-length-jitter") {
		val, err := fs.GetInt("max-length-jitter")
		if err != nil {
			return err
		}
		cfg.MaxLengthJitter = val
	}
	if fs.Changed("delay") {
		val, err := fs.GetDuration("delay")
		if err != nil {
			return err
		}
		cfg.Delay = val
	}
	if fs.Changed("runs") {
		val, err := fs.GetInt("runs")
		if err != nil {
			return err
		}
		cfg.Runs = val
	}
	if fs.Changed("shortcut") {
		val, err := fs.GetBool("shortcut")
		if err != nil {
			return err
		}
		cfg.Shortcut = val
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		cfg.Trace = val
	}
	if fs.Changed("step-ceiling") {
		val, err := fs.GetUint64("step-ceiling")
		if err != nil {
			return err
		}
		cfg.StepCeiling = val
	}
	if fs.Changed("format") {
		val, err := fs.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		if val {
			cfg.Format = OutputFormatJSON
		}
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("clear") {
		val, err := fs.GetBool("clear")
		if err != nil {
			return err
		}
		cfg.Clear = val
	}
	if fs.Changed("progress-interval") {
		val, err := fs.GetDuration("progress-interval")
		if err != nil {
			return err
		}
		cfg.ProgressInterval = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(val))
	}

	if fs.Changed("tracing") {
		val, err := fs.GetBool("tracing")
		if err != nil {
			return err
		}
		cfg.Tracing.Enabled = val
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
		if cfg.Tracing.Endpoint != "" {
			cfg.Tracing.Enabled = true
		}
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}

	return nil
}
