package dashboard

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/hailstone/internal/collatz"
	"github.com/torosent/hailstone/internal/metrics"
	"github.com/torosent/hailstone/internal/output"
	"github.com/torosent/hailstone/internal/runner"
)

const (
	historySize   = 100
	recentRunRows = 12
	startPreview  = 24
)

// SessionConfig holds session parameters for display.
type SessionConfig struct {
	Lower       *big.Int      // Lower sampling bound
	Upper       *big.Int      // Upper sampling bound
	Runs        int           // Runs to execute (0 = unlimited)
	Delay       time.Duration // Pause between runs
	Shortcut    bool          // Stop at values known to converge
	Trace       bool          // Sequence capture
	StepCeiling uint64        // Divergence ceiling
	ConfigFile  string        // Path to config file if used
}

// Dashboard renders a live terminal UI for a Collatz session. It implements
// runner.Reporter and accepts engine progress through Progress.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid          *ui.Grid
	summaryPara   *widgets.Paragraph
	progressGauge *widgets.Gauge
	metricsPara   *widgets.Paragraph
	stepsSparkle  *widgets.SparklineGroup
	stepsPara     *widgets.Paragraph
	runList       *widgets.List
	outcomeList   *widgets.List

	stepsHistory   []float64
	recentRuns     []string
	current        currentRun
	startTime      time.Time
	sessionElapsed time.Duration
	sessionConfig  SessionConfig
}

// currentRun is the run in flight as last reported.
type currentRun struct {
	active   bool
	index    int
	start    string
	progress collatz.Progress
}

var _ runner.Reporter = (*Dashboard)(nil)

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg SessionConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:     collector,
		ctx:           ctx,
		cancel:        cancel,
		shutdownFunc:  shutdownFunc,
		stepsHistory:  make([]float64, 0, historySize),
		startTime:     time.Now(),
		sessionConfig: cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Steps per run"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.stepsSparkle = widgets.NewSparklineGroup(sparkline)
	d.stepsSparkle.Title = "Recent Runs"
	d.stepsSparkle.BorderStyle.Fg = ui.ColorCyan

	d.stepsPara = widgets.NewParagraph()
	d.stepsPara.Title = "Step Stats"
	d.stepsPara.Text = "Min: 0\nMean: 0\nP50: 0\nP90: 0\nP99: 0"
	d.stepsPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Current Run"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)
	d.progressGauge.Label = "Waiting for first run"

	d.runList = widgets.NewList()
	d.runList.Title = "Finished Runs"
	d.runList.Rows = []string{"Awaiting data"}
	d.runList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.runList.BorderStyle.Fg = ui.ColorCyan

	d.outcomeList = widgets.NewList()
	d.outcomeList.Title = "Outcomes"
	d.outcomeList.Rows = []string{"No runs yet"}
	d.outcomeList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.outcomeList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Session"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.20,
			ui.NewCol(0.5, d.progressGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.65, d.stepsSparkle),
			ui.NewCol(0.35, d.stepsPara),
		),
		ui.NewRow(0.38,
			ui.NewCol(0.65, d.runList),
			ui.NewCol(0.35, d.outcomeList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.sessionElapsed = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// GetFinalStats returns the final statistics after the dashboard has stopped.
func (d *Dashboard) GetFinalStats() metrics.Stats {
	return d.collector.Stats(d.sessionElapsed)
}

// RunStarted marks a new run as in flight.
func (d *Dashboard) RunStarted(_ ulid.ULID, index int, start *big.Int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = currentRun{
		active: true,
		index:  index,
		start:  abbreviate(start.String(), startPreview),
		progress: collatz.Progress{
			Bits:      start.BitLen(),
			StartBits: start.BitLen(),
		},
	}
}

// RunFinished records a completed run in the history widgets.
func (d *Dashboard) RunFinished(rep runner.Report) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current.active = false
	d.stepsHistory = pushHistory(d.stepsHistory, float64(rep.Result.Steps), historySize)
	d.recentRuns = append([]string{formatRunRow(rep)}, d.recentRuns...)
	if len(d.recentRuns) > recentRunRows {
		d.recentRuns = d.recentRuns[:recentRunRows]
	}
	return nil
}

// Progress stores the latest snapshot of the run in flight. It matches the
// collatz.Options.Progress signature.
func (d *Dashboard) Progress(p collatz.Progress) {
	d.mu.Lock()
	d.current.progress = p
	d.mu.Unlock()
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop cancels the context once the runner has unwound.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.collector.Stats(elapsed)

	if len(d.stepsHistory) > 0 {
		d.stepsSparkle.Sparklines[0].Data = d.stepsHistory
		d.stepsSparkle.Title = fmt.Sprintf(
			"Recent Runs | Last: %s steps | Min: %s | Max: %s",
			output.FormatCount(uint64(d.stepsHistory[len(d.stepsHistory)-1])),
			output.FormatCount(stats.MinSteps),
			output.FormatCount(stats.MaxSteps),
		)
	}

	d.updateProgress()

	d.summaryPara.Text = fmt.Sprintf(
		"%s\n%s\nElapsed: %s | Completed: %s",
		d.formatRange(),
		d.formatSessionParams(),
		elapsed.Round(time.Second),
		d.formatCompleted(stats.Runs),
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Runs:              %s\nReached 1:         %s\nKnown convergent:  %s\nRuns/min:          %.2f\nLargest start:     %s digits\nMean run time:     %.2fms\nP99 run time:      %.2fms",
		output.FormatCount(uint64(stats.Runs)),
		output.FormatCount(uint64(stats.ReachedOne)),
		output.FormatCount(uint64(stats.KnownConvergent)),
		stats.RunsPerMinute,
		output.FormatCount(uint64(stats.MaxStartDigits)),
		stats.MeanDurationMs,
		stats.P99DurationMs,
	)

	d.stepsPara.Text = fmt.Sprintf(
		"Min:  %s\nMean: %.1f\nP50:  %s\nP90:  %s\nP99:  %s",
		output.FormatCount(stats.MinSteps),
		stats.MeanSteps,
		output.FormatCount(uint64(stats.P50Steps)),
		output.FormatCount(uint64(stats.P90Steps)),
		output.FormatCount(uint64(stats.P99Steps)),
	)

	if len(d.recentRuns) > 0 {
		d.runList.Rows = d.recentRuns
	}
	d.outcomeList.Rows = formatOutcomeRows(stats.Outcomes)
}

func (d *Dashboard) updateProgress() {
	cur := d.current
	if !cur.active {
		d.progressGauge.Title = "Current Run"
		if len(d.stepsHistory) > 0 {
			d.progressGauge.Label = "Idle between runs"
		}
		return
	}
	d.progressGauge.Title = fmt.Sprintf("Run #%d | Start %s", cur.index, cur.start)
	d.progressGauge.Percent = progressPercent(cur.progress)
	d.progressGauge.Label = output.FormatProgress(cur.progress)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

// progressPercent estimates how far a run has shrunk its value. Growth past
// the starting width reads as zero.
func progressPercent(p collatz.Progress) int {
	if p.StartBits <= 1 || p.Bits >= p.StartBits {
		return 0
	}
	pct := (p.StartBits - p.Bits) * 100 / (p.StartBits - 1)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func pushHistory(history []float64, v float64, limit int) []float64 {
	history = append(history, v)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func formatRunRow(rep runner.Report) string {
	res := rep.Result
	start := ""
	if res.Start != nil {
		start = abbreviate(res.Start.String(), startPreview)
	}
	color := "green"
	if res.Outcome == collatz.ReachedKnownConvergent {
		color = "yellow"
	}
	return fmt.Sprintf("#%-5d %s | [%s steps](fg:%s) | %ss",
		rep.Index,
		start,
		output.FormatCount(res.Steps),
		color,
		output.FormatSeconds(rep.Elapsed),
	)
}

func formatOutcomeRows(outcomes map[string]int64) []string {
	rows := metrics.FlattenOutcomes(outcomes)
	if len(rows) == 0 {
		return []string{"[No runs yet](fg:white)"}
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) %s", row.Outcome, output.FormatCount(uint64(row.Count))))
	}
	return formatted
}

// abbreviate shortens long decimal strings to head...tail with the digit count.
func abbreviate(digits string, limit int) string {
	if limit < 8 || len(digits) <= limit {
		return digits
	}
	half := (limit - 3) / 2
	return fmt.Sprintf("%s...%s (%d digits)", digits[:half], digits[len(digits)-half:], len(digits))
}

func (d *Dashboard) formatRange() string {
	lower, upper := "?", "?"
	if d.sessionConfig.Lower != nil {
		lower = abbreviate(d.sessionConfig.Lower.String(), startPreview)
	}
	if d.sessionConfig.Upper != nil {
		upper = abbreviate(d.sessionConfig.Upper.String(), startPreview)
	}
	return fmt.Sprintf("Range: [%s, %s]", lower, upper)
}

func (d *Dashboard) formatCompleted(done int64) string {
	if d.sessionConfig.Runs > 0 {
		return fmt.Sprintf("%d/%d", done, d.sessionConfig.Runs)
	}
	return fmt.Sprintf("%d", done)
}

// formatSessionParams formats the session parameters for display.
func (d *Dashboard) formatSessionParams() string {
	var parts []string

	if d.sessionConfig.Runs > 0 {
		parts = append(parts, fmt.Sprintf("Runs: %d", d.sessionConfig.Runs))
	} else {
		parts = append(parts, "Runs: unlimited")
	}

	if d.sessionConfig.Delay > 0 {
		parts = append(parts, fmt.Sprintf("Delay: %s", d.sessionConfig.Delay))
	}

	if d.sessionConfig.Shortcut {
		parts = append(parts, "Shortcut: on")
	} else {
		parts = append(parts, "Shortcut: off")
	}

	if d.sessionConfig.Trace {
		parts = append(parts, "Trace: on")
	}

	if d.sessionConfig.StepCeiling > 0 && d.sessionConfig.StepCeiling != collatz.MaxSafeSteps {
		parts = append(parts, fmt.Sprintf("Ceiling: %s", output.FormatCount(d.sessionConfig.StepCeiling)))
	}

	if d.sessionConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.sessionConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
