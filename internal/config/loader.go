package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// Running without arguments yields the defaults: sample [2^68, 2^90000) forever
// with the shortcut enabled and a two second pause between runs.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(extra, " "))
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := Default()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	// A traced run keeps every visited value, so unless the run count was
	// chosen explicitly a trace session performs exactly one run.
	if cfg.Trace && !runsSet(settings, flagSet) {
		cfg.Runs = 1
	}
	if cfg.Format == "" {
		cfg.Format = OutputFormatText
	}

	return cfg, nil
}

func runsSet(settings map[string]interface{}, fs *pflag.FlagSet) bool {
	if fs.Changed("runs") {
		return true
	}
	_, ok := lookupSetting(settings, "runs")
	return ok
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "lower", "lower_bound", "lower-bound"); ok {
		val, err := asBigInt(raw)
		if err != nil {
			return fmt.Errorf("lower: %w", err)
		}
		if val != nil {
			cfg.Lower = val
		}
	}

	if raw, ok := lookupSetting(settings, "upper", "upper_bound", "upper-bound"); ok {
		val, err := asBigInt(raw)
		if err != nil {
			return fmt.Errorf("upper: %w", err)
		}
		if val != nil {
			cfg.Upper = val
		}
	}

	if raw, ok := lookupSetting(settings, "delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		cfg.Delay = dur
	} else if raw, ok := lookupSetting(settings, "delay_ms", "delay-ms", "inter_run_delay_millis"); ok {
		ms, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("delay_ms: %w", err)
		}
		cfg.Delay = time.Duration(ms) * time.Millisecond
	}

	if raw, ok := lookupSetting(settings, "trace"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		cfg.Trace = val
	}

	if raw, ok := lookupSetting(settings, "shortcut"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("shortcut: %w", err)
		}
		cfg.Shortcut = val
	}

	if raw, ok := lookupSetting(settings, "runs"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("runs: %w", err)
		}
		cfg.Runs = val
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "maxlengthjitter", "max_length_jitter", "max-length-jitter"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_length_jitter: %w", err)
		}
		cfg.MaxLengthJitter = val
	}

	if raw, ok := lookupSetting(settings, "stepceiling", "step_ceiling", "step-ceiling"); ok {
		val, err := asUint64(raw)
		if err != nil {
			return fmt.Errorf("step_ceiling: %w", err)
		}
		cfg.StepCeiling = val
	}

	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		cfg.Format = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		if val {
			cfg.Format = OutputFormatJSON
		}
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "clear"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		cfg.Clear = val
	}

	if raw, ok := lookupSetting(settings, "progressinterval", "progress_interval", "progress-interval"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("progress_interval: %w", err)
		}
		cfg.ProgressInterval = dur
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "log"); ok {
		if err := applyLogSettings(&cfg.Log, raw); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyLogSettings(lc *LogConfig, value interface{}) error {
	if value == nil {
		return nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("level: %w", err)
		}
		lc.Level = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		lc.Format = strings.ToLower(strings.TrimSpace(val))
	}
	return nil
}

func applyTracingSettings(tc *TracingConfig, value interface{}) error {
	if value == nil {
		return nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("enabled: %w", err)
		}
		tc.Enabled = val
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	return nil
}
