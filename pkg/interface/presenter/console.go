package presenter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/ts"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// defaultWidth is used when the output is not a terminal
const defaultWidth = 80

// Console shows pre-filter progress as a progress bar and prints a run summary
type Console struct {
	progress *mpb.Progress
	bar      *mpb.Bar
	width    int
	mu       sync.Mutex
	finished bool
}

// NewConsole creates a console presenter writing to w
func NewConsole(w io.Writer) *Console {
	width := TerminalWidth()
	p := mpb.New(
		mpb.WithOutput(w),
		mpb.WithWidth(min(width/2, 64)),
	)
	bar := p.AddBar(0,
		mpb.BarOptional(mpb.BarRemoveOnComplete(), false),
		mpb.PrependDecorators(
			decor.Name("pre-filter", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WCSyncSpace), "done",
			),
		),
	)
	return &Console{progress: p, bar: bar, width: width}
}

// TerminalWidth returns the terminal width or a default when unknown
func TerminalWidth() int {
	size, err := ts.GetSize()
	if err != nil || size.Col() <= 0 {
		return defaultWidth
	}
	return size.Col()
}

// OnMetricsUpdate implements application.MetricsObserver
func (c *Console) OnMetricsUpdate(metrics *entity.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished || metrics.ProbeTotal == 0 {
		return
	}
	c.bar.SetTotal(metrics.ProbeTotal, false)
	c.bar.SetCurrent(metrics.ProbesDone)
}

// AddSurvivor implements application.MetricsObserver
func (c *Console) AddSurvivor(string) {}

// Finish completes the progress bar and waits for the last render
func (c *Console) Finish() {
	c.mu.Lock()
	if !c.finished {
		c.finished = true
		// a negative total completes the bar at its current value
		c.bar.SetTotal(-1, true)
	}
	c.mu.Unlock()
	c.progress.Wait()
}

// Summary renders the run report as a bordered table
func (c *Console) Summary(report *entity.RunReport) string {
	return RenderSummary(report, c.width)
}

// RenderSummary renders the per-phase counts and per-protocol survivors of a report
func RenderSummary(report *entity.RunReport, width int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#874BFD")).
		Padding(0, 1).
		Width(max(min(width, 72)-2, 20))

	lines := []string{
		titleStyle.Render("📡 Run Summary"),
		"",
		fmt.Sprintf("%-10s %10s %10s", "Phase", "Entered", "Survived"),
	}
	for _, c := range report.Phases {
		lines = append(lines, fmt.Sprintf("%-10s %10d %10d", c.Phase, c.Entered, c.Survived))
	}

	if len(report.PerProto) > 0 {
		protocols := make([]string, 0, len(report.PerProto))
		for name := range report.PerProto {
			protocols = append(protocols, name)
		}
		sort.Strings(protocols)

		lines = append(lines, "", "Survivors per protocol:")
		for _, name := range protocols {
			lines = append(lines, fmt.Sprintf("  %-12s %d", name, report.PerProto[name]))
		}
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Buckets: %d  Files: %d  Duration: %s",
			report.Buckets, report.Files, formatElapsed(report.FinishedAt.Sub(report.StartedAt))),
	)

	return boxStyle.Render(strings.Join(lines, "\n"))
}
