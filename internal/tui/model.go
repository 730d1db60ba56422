package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/youzi001/pngCompress/internal/processor"
)

// Model renders live batch progress from a stream of per-file events.
type Model struct {
	events     <-chan processor.ProgressEvent
	started    time.Time
	width      int
	done       int
	total      int
	compressed int
	skipped    int
	errors     int
	bytesSaved int64
	lastPath   string
	quitting   bool
}

type doneMsg struct{}

type eventMsg processor.ProgressEvent

func NewModel(events <-chan processor.ProgressEvent) Model {
	return Model{events: events, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForEvents(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.done = msg.Done
		m.total = msg.Total
		m.lastPath = msg.Outcome.Path
		switch msg.Outcome.Status {
		case processor.StatusSuccess:
			m.compressed++
		case processor.StatusSkipped:
			m.skipped++
		case processor.StatusError:
			m.errors++
		}
		m.bytesSaved += msg.Outcome.BytesSaved
		return m, listenForEvents(m.events)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.done) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	current := ""
	if m.lastPath != "" {
		current = filepath.Base(m.lastPath)
	}

	lines := []string{
		titleStyle.Render("pngcompress"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.done, m.total)) +
			dimStyle.Render(fmt.Sprintf("  compressed:%d skipped:%d errors:%d", m.compressed, m.skipped, m.errors)),
		labelStyle.Render(fmt.Sprintf("Saved: %s", humanize.Bytes(uint64(max64(m.bytesSaved, 0))))),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s  %s", elapsed, current)),
		barStyle.Render(bar),
	}

	return strings.Join(lines, "\n")
}

func listenForEvents(events <-chan processor.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(event)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
