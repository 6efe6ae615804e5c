package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/travisleebounds/Beta-Gold/internal/report"
)

// eventMsg wraps one report stream event for the bubbletea loop.
type eventMsg struct {
	event report.Event
	ok    bool
}

// reportModel renders the report stream: a stage log with a progress bar
// while preparing, then the streamed report body.
type reportModel struct {
	events   <-chan report.Event
	styles   *styles
	progress progress.Model

	member   report.Member
	kind     report.Kind
	stages   []string
	percent  float64
	body     string
	done     *report.DoneEvent
	err      error
	canceled bool
}

// RunReport renders the report event stream interactively and returns the
// full report text once generation completes.
func RunReport(events <-chan report.Event, member report.Member, kind report.Kind) (string, error) {
	m := reportModel{
		events:   events,
		styles:   defaultStyles(),
		progress: progress.New(progress.WithDefaultGradient()),
		member:   member,
		kind:     kind,
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", err
	}

	fm := final.(reportModel)
	if fm.err != nil {
		return "", fm.err
	}
	if fm.canceled {
		return "", fmt.Errorf("report canceled")
	}
	if fm.done == nil {
		return "", fmt.Errorf("report stream ended without completion")
	}
	return fm.done.FullText, nil
}

func (m reportModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m reportModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		return eventMsg{event: ev, ok: ok}
	}
}

func (m reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.canceled = true
			return m, tea.Quit
		}

	case eventMsg:
		if !msg.ok {
			return m, tea.Quit
		}
		switch ev := msg.event.(type) {
		case report.StageEvent:
			m.stages = append(m.stages, ev.Stage)
			m.percent = ev.Progress / 100
		case report.TokenEvent:
			m.body += ev.Token
		case report.DoneEvent:
			m.done = &ev
			m.percent = 1.0
		case report.ErrorEvent:
			m.err = ev.Err
		}
		return m, m.waitForEvent()
	}

	return m, nil
}

func (m reportModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("POLICY BRIEF: %s %s", m.member.ID, m.member.Name)
	if m.kind == report.KindComprehensive {
		title = fmt.Sprintf("COMPREHENSIVE REPORT: %s %s", m.member.ID, m.member.Name)
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	for _, stage := range m.stages {
		b.WriteString(m.styles.StageOK.Render("> " + stage + "... ok"))
		b.WriteString("\n")
	}
	b.WriteString(m.progress.ViewAs(m.percent))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("\n" + m.styles.Error.Render("error: "+m.err.Error()) + "\n")
		return b.String()
	}

	if m.body != "" {
		b.WriteString("\n" + m.styles.Body.Render(m.body) + "\n")
	}

	if m.done != nil {
		summary := fmt.Sprintf("report complete: %d sources (%d gold)", m.done.Sources, m.done.GoldSources)
		b.WriteString("\n" + m.styles.Gold.Render(summary) + "\n")
	} else {
		b.WriteString("\n" + m.styles.Muted.Render("q to cancel") + "\n")
	}

	return b.String()
}
