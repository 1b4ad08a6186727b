// Package tui renders a live view of the process scheduler.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"tickos/internal/sched"
)

const (
	logLines  = 8
	nameWidth = 14
)

// Snapshotter is polled for the process table.
type Snapshotter interface {
	Snapshot() sched.Snapshot
}

type monitorModel struct {
	title   string
	src     Snapshotter
	events  <-chan sched.Event
	refresh time.Duration

	spinner spinner.Model
	bar     progress.Model
	snap    sched.Snapshot
	log     []string
	width   int
	done    bool
}

type eventMsg sched.Event
type refreshMsg struct{}
type doneMsg struct{}

// NewMonitor returns a Bubble Tea model that shows the scheduler state,
// refreshed every refresh interval, and the tail of the event stream. It quits
// when events is closed.
func NewMonitor(title string, src Snapshotter, events <-chan sched.Event, refresh time.Duration) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 20

	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}
	return &monitorModel{
		title:   title,
		src:     src,
		events:  events,
		refresh: refresh,
		spinner: sp,
		bar:     bar,
		snap:    src.Snapshot(),
		width:   80,
	}
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent(), m.scheduleRefresh())
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.appendEvent(sched.Event(msg))
		return m, m.listenForEvent()
	case refreshMsg:
		if m.done {
			return m, nil
		}
		m.snap = m.src.Snapshot()
		return m, m.scheduleRefresh()
	case doneMsg:
		m.done = true
		m.snap = m.src.Snapshot()
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil
	}
	return m, nil
}

func (m *monitorModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	faint := lipgloss.NewStyle().Faint(true)

	header := m.title
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	cur := "idle"
	if m.snap.Current != 0 {
		cur = fmt.Sprintf("pid %d", m.snap.Current)
	}
	b.WriteString(faint.Render(fmt.Sprintf("tick %d  running %s  slice %d/%d  ready %v",
		m.snap.Tick, cur, m.snap.Remaining, m.snap.SliceTicks, m.snap.Ready)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %5s %-*s %-10s %6s  %s\n", "PID", nameWidth, "NAME", "STATE", "TICKS", "CPU SHARE"))
	for _, p := range m.snap.Processes {
		share := 0.0
		if m.snap.Tick > 0 {
			share = float64(p.RanTicks) / float64(m.snap.Tick)
		}
		state := styleState(p.State).Render(fmt.Sprintf("%-10s", p.State))
		b.WriteString(fmt.Sprintf("  %5d %s %s %6d  %s\n",
			p.PID, pad(truncate(p.Name, nameWidth), nameWidth), state, p.RanTicks, m.bar.ViewAs(share)))
	}

	b.WriteString("\n")
	for _, line := range m.log {
		b.WriteString(faint.Render(truncate(line, m.width-2)))
		b.WriteString("\n")
	}
	if !m.done {
		b.WriteString(faint.Render("press q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *monitorModel) appendEvent(ev sched.Event) {
	line := fmt.Sprintf("%07d %-14s pid %d %s", ev.Tick, ev.Kind, ev.PID, ev.Name)
	m.log = append(m.log, line)
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m *monitorModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *monitorModel) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return refreshMsg{} })
}

func styleState(state string) lipgloss.Style {
	switch state {
	case sched.Running.String():
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case sched.Blocked.String():
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case sched.Terminated.String():
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width, "...")
}

func pad(value string, width int) string {
	return runewidth.FillRight(value, width)
}
