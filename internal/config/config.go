package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

const (
	DefaultLowerExpr        = "2^68"
	DefaultUpperExpr        = "2^90000"
	DefaultDelay            = 2 * time.Second
	DefaultMaxLengthJitter  = 2600
	DefaultProgressInterval = time.Second
)

// maxSafeSteps mirrors collatz.MaxSafeSteps without importing the engine.
const maxSafeSteps uint64 = 1<<53 - 1

// upperBitsWarning is the bound size above which a single run gets slow enough to warn about.
const upperBitsWarning = 1 << 20

type Config struct {
	Lower            *big.Int      `mapstructure:"lower"`
	Upper            *big.Int      `mapstructure:"upper"`
	Delay            time.Duration `mapstructure:"delay"`
	Trace            bool          `mapstructure:"trace"`
	Shortcut         bool          `mapstructure:"shortcut"`
	Runs             int           `mapstructure:"runs"`
	Seed             int64         `mapstructure:"seed"`
	MaxLengthJitter  int           `mapstructure:"max_length_jitter"`
	StepCeiling      uint64        `mapstructure:"step_ceiling"`
	Format           OutputFormat  `mapstructure:"format"`
	Dashboard        bool          `mapstructure:"dashboard"`
	Clear            bool          `mapstructure:"clear"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	Log              LogConfig     `mapstructure:"log"`
	Thresholds       []string      `mapstructure:"thresholds"`
	Tracing          TracingConfig `mapstructure:"tracing"`
	ConfigFile       string        `mapstructure:"-"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`     // OTLP collector host:port; falls back to OTEL_EXPORTER_OTLP_ENDPOINT
	Protocol    string  `mapstructure:"protocol"`     // grpc or http
	ServiceName string  `mapstructure:"service_name"` // falls back to OTEL_SERVICE_NAME
	SampleRate  float64 `mapstructure:"sample_rate"`  // 0.0-1.0
	Insecure    bool    `mapstructure:"insecure"`
}

// Default returns the configuration used when no file or flags override it.
func Default() *Config {
	lower, _ := ParseBigInt(DefaultLowerExpr)
	upper, _ := ParseBigInt(DefaultUpperExpr)
	return &Config{
		Lower:            lower,
		Upper:            upper,
		Delay:            DefaultDelay,
		Shortcut:         true,
		MaxLengthJitter:  DefaultMaxLengthJitter,
		StepCeiling:      maxSafeSteps,
		Format:           OutputFormatText,
		ProgressInterval: DefaultProgressInterval,
		Log:              LogConfig{Level: "info", Format: "text"},
		Tracing:          TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	switch {
	case c.Lower == nil:
		issues = append(issues, "lower is required")
	case c.Lower.Sign() < 0:
		issues = append(issues, "lower must be >= 0")
	}
	switch {
	case c.Upper == nil:
		issues = append(issues, "upper is required")
	case c.Lower != nil && c.Upper.Cmp(c.Lower) <= 0:
		issues = append(issues, "upper must be greater than lower")
	}
	if c.Upper != nil && c.Upper.BitLen() > upperBitsWarning {
		warnings = append(warnings, fmt.Sprintf("WARNING: upper bound has %d bits. A single run may take hours.", c.Upper.BitLen()))
	}

	if c.Delay < 0 {
		issues = append(issues, "delay must be >= 0")
	}
	if c.Runs < 0 {
		issues = append(issues, "runs must be >= 0")
	}
	if c.MaxLengthJitter < 0 {
		issues = append(issues, "max_length_jitter must be >= 0")
	}
	if c.StepCeiling == 0 {
		issues = append(issues, "step_ceiling must be >= 1")
	}
	if c.ProgressInterval < 0 {
		issues = append(issues, "progress_interval must be >= 0")
	}

	switch c.Format {
	case "", OutputFormatText, OutputFormatJSON, OutputFormatYAML:
	default:
		issues = append(issues, fmt.Sprintf("format must be 'text', 'json', or 'yaml', got %q", c.Format))
	}
	if c.Dashboard && (c.Format == OutputFormatJSON || c.Format == OutputFormatYAML) {
		issues = append(issues, "dashboard and structured output are mutually exclusive")
	}

	if c.Trace && c.Runs == 0 {
		warnings = append(warnings, "WARNING: trace is enabled with unlimited runs. Every visited value is kept in memory for each run.")
	}

	if len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, w)
		}
	}

	issues = append(issues, validateLogConfig(c.Log)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateLogConfig(l LogConfig) []string {
	var issues []string
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log: level must be 'debug', 'info', 'warn', or 'error', got %q", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log: format must be 'text' or 'json', got %q", l.Format))
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	if !t.Enabled {
		return nil
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
