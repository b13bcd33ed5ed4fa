package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/uptime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	statusUnknownStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))
)

type listModel struct {
	table    table.Model
	snap     snapshot
	services []health.ServiceHealth
}

func newListModel() listModel {
	columns := []table.Column{
		{Title: "ID", Width: 14},
		{Title: "Name", Width: 20},
		{Title: "Group", Width: 16},
		{Title: "Status", Width: 14},
		{Title: "Latency", Width: 9},
		{Title: "Last Check", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return listModel{table: t}
}

func (m *listModel) setSnapshot(snap snapshot) {
	m.snap = snap
	m.services = snap.status.Services

	rows := make([]table.Row, 0, len(m.services))
	for _, svc := range m.services {
		rows = append(rows, table.Row{
			svc.ServiceID,
			svc.Name,
			svc.Group.DisplayName(),
			formatStatus(svc.Status),
			svc.Latency.String(),
			formatTime(svc.LastChecked),
		})
	}
	m.table.SetRows(rows)
}

func formatStatus(s health.Status) string {
	return fmt.Sprintf("%s %s", statusIcon(s), strings.ToUpper(string(s)))
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if len(m.services) > 0 && m.table.Cursor() < len(m.services) {
				return m, serviceSelected(m.services[m.table.Cursor()].ServiceID)
			}
		case "i":
			return m, showIncidents()
		case "r":
			return m, refresh()
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m listModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📊 Statusboard"))
	b.WriteString("\n\n")

	if m.snap.hasStatus {
		st := m.snap.status
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(statusColor(st.Overall)).
			Render(fmt.Sprintf("%s %s", statusIcon(st.Overall), st.Overall.Headline())))
		if len(m.snap.history) > 0 {
			b.WriteString(statusUnknownStyle.Render(fmt.Sprintf("  •  %.2f%% uptime over %d days",
				health.Round2(uptime.CalculateUptimePercentage(m.snap.history)), len(m.snap.history))))
		}
		if n := len(m.snap.incidents.Active); n > 0 {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).
				Render(fmt.Sprintf("  •  %d active incident(s)", n)))
		}
	} else {
		b.WriteString(statusUnknownStyle.Render("Waiting for the first probe cycle..."))
	}
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
		"enter: details • i: incidents • r: refresh • q: quit",
	)
	b.WriteString(help)

	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Local().Format("Jan 02 15:04:05")
}
