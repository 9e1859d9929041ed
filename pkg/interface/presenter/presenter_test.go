package presenter

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	tea "github.com/charmbracelet/bubbletea"
)

func TestDashboardView(t *testing.T) {
	d := NewDashboard()
	if got := d.View(); got != "Initializing..." {
		t.Fatalf("View() before sizing = %q", got)
	}

	d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	d.OnMetricsUpdate(&entity.Metrics{
		Phase:       entity.PhasePrefilter,
		Candidates:  12,
		ProbeTotal:  10,
		ProbesDone:  4,
		ProbesAlive: 3,
	})
	d.AddSurvivor("VL-WS-TLS DE-1.2.3.4:443")

	view := d.View()
	for _, want := range []string{"Config Collector", "prefilter", "4 / 10", "DE-1.2.3.4:443", "Total: 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestDashboardKeepsRecentSurvivors(t *testing.T) {
	d := NewDashboard()
	for i := 0; i < maxRecent+10; i++ {
		d.AddSurvivor("label")
	}
	if len(d.recentSurvivors) != maxRecent {
		t.Errorf("recentSurvivors = %d, want %d", len(d.recentSurvivors), maxRecent)
	}
	if d.survivorCount != maxRecent+10 {
		t.Errorf("survivorCount = %d, want %d", d.survivorCount, maxRecent+10)
	}
}

func TestDashboardQuit(t *testing.T) {
	d := NewDashboard()
	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}
}

func TestConsoleFinish(t *testing.T) {
	c := NewConsole(io.Discard)
	c.OnMetricsUpdate(&entity.Metrics{ProbeTotal: 5, ProbesDone: 2})
	c.AddSurvivor("ignored")

	done := make(chan struct{})
	go func() {
		c.Finish()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Finish did not return")
	}

	// updates after finishing are ignored
	c.OnMetricsUpdate(&entity.Metrics{ProbeTotal: 9, ProbesDone: 9})
}

func TestRenderSummary(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	report := &entity.RunReport{
		StartedAt:  start,
		FinishedAt: start.Add(75 * time.Second),
		PerProto:   map[string]int{"vless": 3, "trojan": 1},
		Buckets:    120,
		Files:      121,
	}
	report.Record(entity.PhaseExtract, 10, 8)
	report.Record(entity.PhaseSort, 4, 4)

	summary := RenderSummary(report, 100)
	for _, want := range []string{"Run Summary", "extract", "sort", "trojan", "vless", "Buckets: 120", "Files: 121", "1m 15s"} {
		if !strings.Contains(summary, want) {
			t.Errorf("RenderSummary() missing %q", want)
		}
	}
	if strings.Index(summary, "trojan") > strings.Index(summary, "vless") {
		t.Errorf("protocols are not sorted")
	}
}
