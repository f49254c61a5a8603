package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/torosent/hailstone/internal/collatz"
)

func TestFormatProgress(t *testing.T) {
	line := FormatProgress(collatz.Progress{
		Steps:     2_000_000,
		Bits:      45_000,
		StartBits: 90_001,
		Elapsed:   2 * time.Second,
	})
	want := "Step 2,000,000 | 45,000 of 90,001 bits | 1,000,000 steps/s | 2s"
	if line != want {
		t.Fatalf("FormatProgress() = %q, want %q", line, want)
	}
}

func TestFormatProgressZeroElapsed(t *testing.T) {
	line := FormatProgress(collatz.Progress{Steps: 4096, Bits: 10, StartBits: 12})
	if !strings.Contains(line, "| 0 steps/s |") {
		t.Fatalf("expected zero rate, got %q", line)
	}
}

func TestProgressReporterRewritesLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Clear()
	if buf.Len() != 0 {
		t.Fatalf("Clear() before any update should write nothing, got %q", buf.String())
	}

	p.Update(collatz.Progress{Steps: 4096, Bits: 60, StartBits: 64, Elapsed: time.Second})
	p.Update(collatz.Progress{Steps: 8192, Bits: 50, StartBits: 64, Elapsed: 2 * time.Second})
	if got := strings.Count(buf.String(), eraseLine); got != 2 {
		t.Fatalf("expected each update to erase the line, got %d erasures", got)
	}
	if !strings.HasSuffix(buf.String(), "Step 8,192 | 50 of 64 bits | 4,096 steps/s | 2s") {
		t.Fatalf("unexpected progress output %q", buf.String())
	}

	p.Clear()
	p.Clear()
	if !strings.HasSuffix(buf.String(), eraseLine) || strings.Count(buf.String(), eraseLine) != 3 {
		t.Fatalf("Clear() should erase once, got %q", buf.String())
	}
}
