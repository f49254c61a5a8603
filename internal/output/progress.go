package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/torosent/hailstone/internal/collatz"
)

// eraseLine returns the cursor to column 0 and clears the line.
const eraseLine = "\r\033[K"

// ProgressReporter renders a single, continuously rewritten status line for
// the run in flight. Updates arrive already throttled by the engine.
type ProgressReporter struct {
	mu     sync.Mutex
	writer io.Writer
	dirty  bool
}

// NewProgressReporter creates a progress reporter writing to writer.
func NewProgressReporter(writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{writer: writer}
}

// Update redraws the status line. It matches the collatz.Options.Progress signature.
func (p *ProgressReporter) Update(pr collatz.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.writer, eraseLine+FormatProgress(pr))
	p.dirty = true
}

// Clear erases the status line if one is showing.
func (p *ProgressReporter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return
	}
	fmt.Fprint(p.writer, eraseLine)
	p.dirty = false
}

// FormatProgress renders one progress snapshot.
func FormatProgress(pr collatz.Progress) string {
	rate := 0.0
	if secs := pr.Elapsed.Seconds(); secs > 0 {
		rate = float64(pr.Steps) / secs
	}
	return fmt.Sprintf("Step %s | %s of %s bits | %s steps/s | %ss",
		FormatCount(pr.Steps),
		FormatCount(uint64(pr.Bits)),
		FormatCount(uint64(pr.StartBits)),
		FormatCount(uint64(rate)),
		FormatSeconds(pr.Elapsed))
}
