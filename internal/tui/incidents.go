package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/statusboard/internal/incident"
)

type incidentsModel struct {
	snap   snapshot
	cursor int
}

func newIncidentsModel() incidentsModel {
	return incidentsModel{}
}

func (m *incidentsModel) setSnapshot(snap snapshot) {
	m.snap = snap
	if n := len(m.all()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// all lists active incidents first, then maintenance, then the rest of the
// recent history.
func (m incidentsModel) all() []incident.Incident {
	b := m.snap.incidents
	out := make([]incident.Incident, 0, len(b.Active)+len(b.Maintenance)+len(b.Recent))
	out = append(out, b.Active...)
	out = append(out, b.Maintenance...)
	for _, inc := range b.Recent {
		if !containsIncident(out, inc.ID) {
			out = append(out, inc)
		}
	}
	return out
}

func (m incidentsModel) Update(msg tea.Msg) (incidentsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "backspace":
			return m, backToList()
		case "j", "down":
			if m.cursor < len(m.all())-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "r":
			return m, refresh()
		}
	}
	return m, nil
}

func (m incidentsModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Incidents & Maintenance"))
	b.WriteString("\n\n")

	all := m.all()
	if len(all) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓ No incidents reported"))
		b.WriteString("\n")
	}

	for i, inc := range all {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		b.WriteString(cursor)
		b.WriteString(renderIncidentLine(inc))
		b.WriteString("\n")
	}

	if m.cursor < len(all) {
		b.WriteString("\n")
		b.WriteString(renderTimeline(all[m.cursor]))
	}

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
		"j/k: navigate • r: refresh • esc/q: back to list",
	)
	b.WriteString("\n")
	b.WriteString(help)

	return b.String()
}

func renderIncidentLine(inc incident.Incident) string {
	severity := lipgloss.NewStyle().Bold(true).Foreground(namedColor(inc.Severity.Color()))
	status := lipgloss.NewStyle().Foreground(namedColor(inc.Status.Color()))

	kind := strings.ToUpper(string(inc.Severity))
	if inc.IsMaintenance() {
		kind = "MAINTENANCE"
		severity = severity.Foreground(lipgloss.Color("39"))
	}

	when := inc.CreatedAt.Local().Format("Jan 02 15:04")
	if inc.IsMaintenance() && inc.ScheduledStart != nil {
		when = inc.ScheduledStart.Local().Format("Jan 02 15:04")
		if inc.ScheduledEnd != nil {
			when += " → " + inc.ScheduledEnd.Local().Format("Jan 02 15:04")
		}
	}

	return fmt.Sprintf("%s %s  %s  %s",
		severity.Render("["+kind+"]"),
		inc.Title,
		status.Render(string(inc.Status)),
		statusUnknownStyle.Render(fmt.Sprintf("%s • %s", when, formatDuration(inc.Duration()))))
}

func renderTimeline(inc incident.Incident) string {
	var b strings.Builder

	if len(inc.AffectedServices) > 0 {
		b.WriteString(statusUnknownStyle.Render("Affected: " + strings.Join(inc.AffectedServices, ", ")))
		b.WriteString("\n")
	}

	for _, u := range inc.Updates {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(namedColor(u.Status.Color())).
			Render(fmt.Sprintf("%s  %s", u.Timestamp.Local().Format("Jan 02 15:04"), strings.ToUpper(string(u.Status)))))
		b.WriteString("\n")
		if msg := strings.TrimSpace(u.Message); msg != "" {
			b.WriteString("  ")
			b.WriteString(strings.ReplaceAll(msg, "\n", "\n  "))
			b.WriteString("\n")
		}
	}

	return b.String()
}
