package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxRecent bounds the survivor list kept for display
const maxRecent = 50

// Dashboard is a TUI dashboard for pipeline progress
type Dashboard struct {
	metrics         *entity.Metrics
	recentSurvivors []string
	survivorCount   int
	probeBar        progress.Model
	width           int
	height          int
	startTime       time.Time
	mu              sync.RWMutex
}

type tickMsg time.Time

// NewDashboard creates a new TUI dashboard
func NewDashboard() *Dashboard {
	return &Dashboard{
		metrics:   &entity.Metrics{},
		probeBar:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		startTime: time.Now(),
	}
}

// Init initializes the dashboard
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

// Update handles dashboard updates
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tickMsg:
		// Continue ticking to keep the display updating
		return d, tickCmd()
	}

	return d, nil
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var sections []string

	header := d.renderHeader()
	sections = append(sections, header)
	headerHeight := lipgloss.Height(header)

	footer := d.renderFooter()
	footerHeight := lipgloss.Height(footer)

	availableHeight := max(d.height-headerHeight-footerHeight, 0)
	halfHeight := availableHeight / 2

	leftWidth := d.width / 2
	rightWidth := d.width - leftWidth

	// Row 1: Pipeline (Left) | Probes (Right)
	row1 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderPipelineStats(leftWidth, halfHeight),
		d.renderProbeStats(rightWidth, halfHeight),
	)
	sections = append(sections, row1)

	// Row 2: Output (Left) | Recent Survivors (Right)
	remainingHeight := availableHeight - halfHeight
	row2 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderOutputStats(leftWidth, remainingHeight),
		d.renderRecentSurvivors(rightWidth, remainingHeight),
	)
	sections = append(sections, row2)

	sections = append(sections, footer)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// OnMetricsUpdate implements application.MetricsObserver
func (d *Dashboard) OnMetricsUpdate(metrics *entity.Metrics) {
	d.mu.Lock()
	d.metrics = metrics
	d.mu.Unlock()
}

// AddSurvivor implements application.MetricsObserver
func (d *Dashboard) AddSurvivor(label string) {
	d.mu.Lock()
	d.survivorCount++
	d.recentSurvivors = append(d.recentSurvivors, label)
	if len(d.recentSurvivors) > maxRecent {
		d.recentSurvivors = d.recentSurvivors[len(d.recentSurvivors)-maxRecent:]
	}
	d.mu.Unlock()
}

func (d *Dashboard) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	timeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999"))

	title := titleStyle.Render("📡 Config Collector")
	timeInfo := timeStyle.Render(fmt.Sprintf(" Running: %s | Phase: %s | Time: %s",
		formatElapsed(time.Since(d.startTime)), phaseName(d.metrics.Phase), time.Now().Format("15:04:05")))

	return title + timeInfo
}

func (d *Dashboard) renderPipelineStats(width, height int) string {
	stats := []string{
		"📊 Pipeline",
		"",
		fmt.Sprintf("Candidates:        %d", d.metrics.Candidates),
		fmt.Sprintf("Normalized:        %d", d.metrics.Normalized),
		fmt.Sprintf("Resolved:          %d", d.metrics.Resolved),
		fmt.Sprintf("Enriched:          %d", d.metrics.Enriched),
		fmt.Sprintf("Survivors:         %d", d.metrics.Survivors),
	}
	return panel("#874BFD", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderProbeStats(width, height int) string {
	stats := []string{
		"🔌 Pre-filter Probes",
		"",
		fmt.Sprintf("Probed:            %d / %d", d.metrics.ProbesDone, d.metrics.ProbeTotal),
		fmt.Sprintf("Reachable:         %d", d.metrics.ProbesAlive),
		fmt.Sprintf("Active Workers:    %d / %d", d.metrics.ActiveWorkers, d.metrics.TotalWorkers),
	}

	if d.metrics.ProbeTotal > 0 {
		percent := float64(d.metrics.ProbesDone) / float64(d.metrics.ProbeTotal)
		bar := d.probeBar
		bar.Width = max(width-10, 10)
		stats = append(stats, "", bar.ViewAs(percent))
	}

	elapsed := time.Since(d.startTime).Seconds()
	if elapsed > 0 {
		stats = append(stats,
			"",
			fmt.Sprintf("Probe Rate:        %.1f probes/s", float64(d.metrics.ProbesDone)/elapsed),
		)
	}

	return panel("#FF6B6B", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderOutputStats(width, height int) string {
	stats := []string{
		"💾 Output",
		"",
		fmt.Sprintf("Files Written:     %d", d.metrics.FilesWritten),
		fmt.Sprintf("Errors:            %d", d.metrics.ErrorCount),
	}
	if len(d.metrics.ActiveTargets) > 0 {
		stats = append(stats, "", "Probing:")
		for _, target := range d.metrics.ActiveTargets[:min(len(d.metrics.ActiveTargets), max(height-12, 0))] {
			stats = append(stats, "  "+target)
		}
	}
	return panel("#4ECDC4", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderRecentSurvivors(width, height int) string {
	lines := []string{
		fmt.Sprintf("✅ Recent Survivors (Total: %d)", d.survivorCount),
		"",
	}

	if len(d.recentSurvivors) == 0 {
		lines = append(lines, "No endpoint survived yet...")
	} else {
		// Height - 2 (border) - 2 (padding) - 2 (title + empty line)
		maxShow := max(height-6, 0)
		start := max(len(d.recentSurvivors)-maxShow, 0)
		for _, label := range d.recentSurvivors[start:] {
			lines = append(lines, fmt.Sprintf("  • %s", label))
		}
	}

	return panel("#04B575", width, height).Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		Padding(1, 0)

	return footerStyle.Render("Press 'q' or 'Ctrl+C' to quit")
}

func panel(color string, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(1, 2).
		Width(max(width-2, 0)).  // Adjust for border
		Height(max(height-2, 0)) // Adjust for border
}

func phaseName(phase entity.Phase) string {
	if phase == "" {
		return "starting"
	}
	return string(phase)
}

func formatElapsed(elapsed time.Duration) string {
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*500, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the dashboard
func (d *Dashboard) Run() error {
	p := tea.NewProgram(d, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
