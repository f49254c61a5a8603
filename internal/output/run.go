package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"

	"github.com/torosent/hailstone/internal/collatz"
	"github.com/torosent/hailstone/internal/config"
	"github.com/torosent/hailstone/internal/runner"
)

// clearScreen resets the terminal (RIS).
const clearScreen = "\033c"

// traceDisabledNote replaces the sequence when tracing is off.
const traceDisabledNote = "(Sequence only available in trace mode)"

var numbers = message.NewPrinter(language.English)

// RunRecord is the structured form of one run report.
type RunRecord struct {
	ID          string   `json:"id" yaml:"id"`
	Index       int      `json:"index" yaml:"index"`
	Start       string   `json:"start" yaml:"start"`
	StartDigits int      `json:"start_digits" yaml:"start_digits"`
	Outcome     string   `json:"outcome" yaml:"outcome"`
	Steps       uint64   `json:"steps" yaml:"steps"`
	Terminal    string   `json:"terminal" yaml:"terminal"`
	ElapsedMs   float64  `json:"elapsed_ms" yaml:"elapsed_ms"`
	Trace       []string `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// NewRunRecord flattens a report. Big integers are rendered as decimal
// strings so that no consumer has to cope with numbers beyond float64.
func NewRunRecord(rep runner.Report) RunRecord {
	res := rep.Result
	rec := RunRecord{
		ID:        rep.ID.String(),
		Index:     rep.Index,
		Outcome:   res.Outcome.String(),
		Steps:     res.Steps,
		ElapsedMs: toMs(rep.Elapsed),
	}
	if res.Start != nil {
		rec.Start = res.Start.String()
		rec.StartDigits = len(rec.Start)
	}
	if res.Terminal != nil {
		rec.Terminal = res.Terminal.String()
	}
	if res.Trace != nil {
		rec.Trace = make([]string, len(res.Trace))
		for i, v := range res.Trace {
			rec.Trace[i] = v.String()
		}
	}
	return rec
}

// RunPrinter writes one report per run. It implements runner.Reporter.
type RunPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	format config.OutputFormat
	clear  bool
	trace  bool
	yaml   *yaml.Encoder
	before func()
}

// RunPrinterOptions configure a RunPrinter.
type RunPrinterOptions struct {
	Format config.OutputFormat
	Clear  bool // text only
	Trace  bool // print the placeholder when false
	// BeforeWrite runs before each report is written, e.g. to erase a progress line.
	BeforeWrite func()
}

func NewRunPrinter(w io.Writer, opt RunPrinterOptions) *RunPrinter {
	if w == nil {
		w = io.Discard
	}
	if opt.Format == "" {
		opt.Format = config.OutputFormatText
	}
	p := &RunPrinter{
		w:      w,
		format: opt.Format,
		clear:  opt.Clear && opt.Format == config.OutputFormatText,
		trace:  opt.Trace,
		before: opt.BeforeWrite,
	}
	if p.format == config.OutputFormatYAML {
		p.yaml = yaml.NewEncoder(w)
		p.yaml.SetIndent(2)
	}
	return p
}

// RunStarted prints the start value in text mode.
func (p *RunPrinter) RunStarted(_ ulid.ULID, _ int, start *big.Int) {
	if p.format != config.OutputFormatText {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clear {
		fmt.Fprint(p.w, clearScreen)
	}
	fmt.Fprintf(p.w, "Start value: %s\n", start)
}

// RunFinished writes the outcome of a run.
func (p *RunPrinter) RunFinished(rep runner.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.before != nil {
		p.before()
	}

	switch p.format {
	case config.OutputFormatJSON:
		return json.NewEncoder(p.w).Encode(NewRunRecord(rep))
	case config.OutputFormatYAML:
		return p.yaml.Encode(NewRunRecord(rep))
	default:
		return p.writeText(rep)
	}
}

// Close flushes a YAML stream. It is a no-op for other formats.
func (p *RunPrinter) Close() error {
	if p.yaml == nil {
		return nil
	}
	return p.yaml.Close()
}

func (p *RunPrinter) writeText(rep runner.Report) error {
	res := rep.Result
	var err error
	write := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(p.w, format, args...)
		}
	}

	switch res.Outcome {
	case collatz.ReachedKnownConvergent:
		write("Step %s: reached value that is known to reach 1\n", FormatCount(res.Steps))
	default:
		write("Reached 1 in %s steps\n", FormatCount(res.Steps))
	}
	write("Calculation took %s seconds\n", FormatSeconds(rep.Elapsed))

	if !p.trace {
		write("%s\n", traceDisabledNote)
		return err
	}
	write("Sequence (%s values):\n", FormatCount(uint64(len(res.Trace))))
	for _, v := range res.Trace {
		write("  %s\n", v)
	}
	return err
}

// FormatCount groups digits in threes: 1234567 -> "1,234,567".
func FormatCount(n uint64) string {
	return numbers.Sprintf("%d", n)
}

// FormatSeconds renders d in seconds with at most three fraction digits
// and grouped thousands: 1234.5s -> "1,234.5".
func FormatSeconds(d time.Duration) string {
	return numbers.Sprint(number.Decimal(d.Seconds(), number.MaxFractionDigits(3)))
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
