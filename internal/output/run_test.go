package output

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/torosent/hailstone/internal/collatz"
	"github.com/torosent/hailstone/internal/config"
	"github.com/torosent/hailstone/internal/runner"
)

func bigInts(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func sixReport(trace bool) runner.Report {
	res := collatz.Result{
		Start:    big.NewInt(6),
		Steps:    8,
		Terminal: big.NewInt(1),
		Outcome:  collatz.ReachedOne,
		Elapsed:  time.Millisecond,
	}
	if trace {
		res.Trace = bigInts(6, 3, 10, 5, 16, 8, 4, 2, 1)
	}
	// The report's elapsed includes sampling, so it differs from the engine's.
	return runner.Report{ID: ulid.Make(), Index: 1, Result: res, Elapsed: 1500 * time.Millisecond}
}

func TestRunPrinterTextReachedOne(t *testing.T) {
	var buf bytes.Buffer
	p := NewRunPrinter(&buf, RunPrinterOptions{})
	rep := sixReport(false)

	p.RunStarted(rep.ID, rep.Index, rep.Result.Start)
	if err := p.RunFinished(rep); err != nil {
		t.Fatalf("RunFinished() error = %v", err)
	}

	want := "Start value: 6\n" +
		"Reached 1 in 8 steps\n" +
		"Calculation took 1.5 seconds\n" +
		traceDisabledNote + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected text output:\n%s\nwant:\n%s", got, want)
	}
}

func TestRunPrinterTextShortcut(t *testing.T) {
	var buf bytes.Buffer
	p := NewRunPrinter(&buf, RunPrinterOptions{Format: config.OutputFormatText})
	rep := runner.Report{Elapsed: 1234567 * time.Millisecond, Result: collatz.Result{
		Start:    big.NewInt(6),
		Steps:    1234567,
		Terminal: big.NewInt(16),
		Outcome:  collatz.ReachedKnownConvergent,
	}}
	if err := p.RunFinished(rep); err != nil {
		t.Fatalf("RunFinished() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Step 1,234,567: reached value that is known to reach 1\n") {
		t.Errorf("missing shortcut line in %q", out)
	}
	if !strings.Contains(out, "Calculation took 1,234.567 seconds\n") {
		t.Errorf("missing grouped seconds in %q", out)
	}
}

func TestRunPrinterTextTrace(t *testing.T) {
	var buf bytes.Buffer
	p := NewRunPrinter(&buf, RunPrinterOptions{Trace: true})
	if err := p.RunFinished(sixReport(true)); err != nil {
		t.Fatalf("RunFinished() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, traceDisabledNote) {
		t.Error("trace placeholder should not appear when tracing")
	}
	if !strings.Contains(out, "Sequence (9 values):\n  6\n  3\n  10\n") {
		t.Errorf("sequence not printed in order: %q", out)
	}
}

func TestRunPrinterClear(t *testing.T) {
	var buf bytes.Buffer
	p := NewRunPrinter(&buf, RunPrinterOptions{Clear: true})
	p.RunStarted(ulid.ULID{}, 1, big.NewInt(7))
	if !strings.HasPrefix(buf.String(), clearScreen+"Start value: 7") {
		t.Fatalf("expected clear sequence before start value, got %q", buf.String())
	}

	buf.Reset()
	p = NewRunPrinter(&buf, RunPrinterOptions{Clear: true, Format: config.OutputFormatJSON})
	p.RunStarted(ulid.ULID{}, 1, big.NewInt(7))
	if buf.Len() != 0 {
		t.Fatalf("structured formats should not clear or print on start, got %q", buf.String())
	}
}

func TestRunPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewRunPrinter(&buf, RunPrinterOptions{Format: config.OutputFormatJSON})
	huge := new(big.Int).Lsh(big.NewInt(1), 300)
	rep := sixReport(true)
	rep.Result.Start = huge

	calls := 0
	p.before = func() { calls++ }
	if err := p.RunFinished(rep); err != nil {
		t.Fatalf("RunFinished() error = %v", err)
	}
	if err := p.RunFinished(sixReport(false)); err != nil {
		t.Fatalf("RunFinished() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("BeforeWrite called %d times, want 2", calls)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one JSON line per run, got %d", len(lines))
	}
	first := gjson.Parse(lines[0])
	if first.Get("start").String() != huge.String() {
		t.Errorf("start should be an exact decimal string, got %s", first.Get("start").Raw)
	}
	if first.Get("start").Type != gjson.String {
		t.Errorf("start should be encoded as a string, got %v", first.Get("start").Type)
	}
	if first.Get("start_digits").Int() != int64(len(huge.String())) {
		t.Errorf("start_digits = %d", first.Get("start_digits").Int())
	}
	if first.Get("outcome").String() != "reached_one" || first.Get("steps").Int() != 8 {
		t.Errorf("unexpected outcome fields: %s", lines[0])
	}
	if first.Get("elapsed_ms").Float() != 1500 {
		t.Errorf("elapsed_ms = %v, want 1500", first.Get("elapsed_ms").Float())
	}
	if first.Get("trace.#").Int() != 9 || first.Get("trace.2").String() != "10" {
		t.Errorf("unexpected trace: %s", first.Get("trace").Raw)
	}
	if gjson.Get(lines[1], "trace").Exists() {
		t.Error("trace should be omitted when not recorded")
	}
	if !ulidPattern(first.Get("id").String()) {
		t.Errorf("id %q is not a ULID", first.Get("id").String())
	}
}

func ulidPattern(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

func TestRunPrinterYAMLStream(t *testing.T) {
	var buf bytes.Buffer
	p := NewRunPrinter(&buf, RunPrinterOptions{Format: config.OutputFormatYAML})
	for i := 0; i < 2; i++ {
		if err := p.RunFinished(sixReport(false)); err != nil {
			t.Fatalf("RunFinished() error = %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	dec := yaml.NewDecoder(&buf)
	var docs []RunRecord
	for {
		var rec RunRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		docs = append(docs, rec)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 YAML documents, got %d", len(docs))
	}
	if docs[1].Start != "6" || docs[1].Steps != 8 || docs[1].Outcome != "reached_one" {
		t.Errorf("unexpected record %+v", docs[1])
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[uint64]string{
		0:                "0",
		999:              "999",
		1000:             "1,000",
		9007199254740991: "9,007,199,254,740,991",
	}
	for in, want := range tests {
		if got := FormatCount(in); got != want {
			t.Errorf("FormatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[time.Duration]string{
		0:                      "0",
		250 * time.Millisecond: "0.25",
		2 * time.Second:        "2",
		3723 * time.Second:     "3,723",
	}
	for in, want := range tests {
		if got := FormatSeconds(in); got != want {
			t.Errorf("FormatSeconds(%s) = %q, want %q", in, got, want)
		}
	}
}
