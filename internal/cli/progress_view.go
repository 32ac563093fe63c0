package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"unpackrr/internal/extract"
	"unpackrr/internal/model"
)

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tuiPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	tuiStateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

type extractEventMsg extract.Event

type extractClosedMsg struct{}

type extractModel struct {
	orch   *extract.Orchestrator
	events <-chan extract.Event

	bar       progress.Model
	total     int
	completed int
	failed    int
	current   string
	state     string
	width     int
	lastFail  string
	done      bool
}

// runExtractTUI drives a batch behind the interactive progress view. Control
// keys feed the orchestrator's signal channel; the view only renders.
func runExtractTUI(orch *extract.Orchestrator, batch []model.FileEntry) (*extract.Result, error) {
	events := make(chan extract.Event, len(batch)*2+16)

	type outcome struct {
		result *extract.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := orch.Run(batch, events)
		close(events)
		done <- outcome{result, err}
	}()

	m := extractModel{
		orch:   orch,
		events: events,
		bar:    progress.New(progress.WithDefaultGradient()),
		total:  len(batch),
		state:  "running",
	}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		orch.Cancel()
		out := <-done
		if out.err != nil {
			return nil, out.err
		}
		return out.result, err
	}
	out := <-done
	return out.result, out.err
}

func waitForExtractEvent(ch <-chan extract.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return extractClosedMsg{}
		}
		return extractEventMsg(ev)
	}
}

func (m extractModel) Init() tea.Cmd {
	return waitForExtractEvent(m.events)
}

func (m extractModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "p":
			m.orch.Pause()
		case "r":
			m.orch.Resume()
		case "c", "q", "ctrl+c":
			m.orch.Cancel()
			m.state = "cancelling"
		}
		return m, nil
	case extractEventMsg:
		m.apply(extract.Event(msg))
		return m, waitForExtractEvent(m.events)
	case extractClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *extractModel) apply(ev extract.Event) {
	switch ev.Kind {
	case extract.EventStarted:
		m.total = ev.Total
	case extract.EventFileStarted:
		m.current = ev.Name
	case extract.EventFileCompleted:
		m.completed++
		if !ev.Success {
			m.failed++
			m.lastFail = fmt.Sprintf("%s: %s", ev.Name, ev.Message)
		}
	case extract.EventPaused:
		m.state = "paused"
	case extract.EventResumed:
		m.state = "running"
	case extract.EventCancelled:
		m.state = "cancelled"
	case extract.EventFinished:
		if m.state != "cancelled" {
			m.state = "finished"
		}
	}
}

func (m extractModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render("unpackrr extract"))
	b.WriteString("  ")
	b.WriteString(tuiStateStyle.Render(" " + m.state + " "))
	b.WriteString("\n\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.completed) / float64(m.total)
	}
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString(fmt.Sprintf("\n%d/%d done, %d failed\n", m.completed, m.total, m.failed))
	if m.current != "" && m.state == "running" {
		b.WriteString(mutedStyle.Render("extracting " + m.current))
		b.WriteString("\n")
	}
	if m.lastFail != "" {
		b.WriteString(corruptedStyle.Render("last failure: " + m.lastFail))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("p pause  r resume  c cancel"))
	b.WriteString("\n")
	return tuiPanelStyle.Render(b.String())
}
