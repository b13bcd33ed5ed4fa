package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/incident"
	"github.com/ankityadav/statusboard/internal/storage"
)

const recentChecks = 10

type probeStats struct {
	total       int64
	operational int64
	avgLatency  float64
}

type statsMsg struct {
	serviceID string
	stats     probeStats
	err       error
}

type detailModel struct {
	probes    ProbeHistory
	serviceID string
	service   health.ServiceHealth
	found     bool
	records   []storage.ProbeRecord
	incidents []incident.Incident
	stats     probeStats
	statsErr  error
}

func newDetailModel(probes ProbeHistory) detailModel {
	return detailModel{probes: probes}
}

func (m *detailModel) setService(id string, snap snapshot) tea.Cmd {
	m.serviceID = id
	m.stats = probeStats{}
	m.statsErr = nil
	return m.setSnapshot(snap)
}

func (m *detailModel) setSnapshot(snap snapshot) tea.Cmd {
	m.found = false
	for _, svc := range snap.status.Services {
		if svc.ServiceID == m.serviceID {
			m.service = svc
			m.found = true
			break
		}
	}

	m.records = snap.probes[m.serviceID]
	if len(m.records) > recentChecks {
		m.records = m.records[:recentChecks]
	}

	m.incidents = nil
	for _, list := range [][]incident.Incident{snap.incidents.Active, snap.incidents.Maintenance, snap.incidents.Recent} {
		for _, inc := range list {
			if inc.Affects(m.serviceID) && !containsIncident(m.incidents, inc.ID) {
				m.incidents = append(m.incidents, inc)
			}
		}
	}

	return m.loadStats()
}

func containsIncident(list []incident.Incident, id string) bool {
	for _, inc := range list {
		if inc.ID == id {
			return true
		}
	}
	return false
}

func (m *detailModel) loadStats() tea.Cmd {
	if m.probes == nil || m.serviceID == "" {
		return nil
	}
	probes, id := m.probes, m.serviceID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		total, operational, avg, err := probes.GetProbeStats(ctx, id, time.Now().Add(-24*time.Hour))
		return statsMsg{serviceID: id, stats: probeStats{total: total, operational: operational, avgLatency: avg}, err: err}
	}
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "backspace":
			return m, backToList()
		case "r":
			return m, refresh()
		}
	case statsMsg:
		if msg.serviceID == m.serviceID {
			m.stats = msg.stats
			m.statsErr = msg.err
		}
	}
	return m, nil
}

func (m detailModel) View() string {
	if !m.found {
		return "No service selected"
	}

	var b strings.Builder
	svc := m.service

	b.WriteString(titleStyle.Render(fmt.Sprintf("Service Details: %s", svc.Name)))
	b.WriteString("\n\n")

	infoStyle := lipgloss.NewStyle().Bold(true)
	field := func(label, value string) {
		b.WriteString(infoStyle.Render(label + ": "))
		b.WriteString(value)
		b.WriteString("\n")
	}

	field("ID", svc.ServiceID)
	if svc.Description != "" {
		field("Description", svc.Description)
	}
	field("Group", svc.Group.DisplayName())
	field("Status", lipgloss.NewStyle().Bold(true).Foreground(statusColor(svc.Status)).Render(formatStatus(svc.Status)))
	field("Latency", svc.Latency.String())
	if svc.StatusCode != 0 {
		field("HTTP Status", fmt.Sprintf("%d", svc.StatusCode))
	}
	if svc.Error != "" {
		field("Error", svc.Error)
	}
	field("Last Check", formatTime(svc.LastChecked))

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Statistics (Last 24h)"))
	b.WriteString("\n")

	if m.statsErr == nil && m.stats.total > 0 {
		ratio := float64(m.stats.operational) / float64(m.stats.total) * 100
		b.WriteString(fmt.Sprintf("Operational: %.2f%% (%d/%d checks)\n", ratio, m.stats.operational, m.stats.total))
		b.WriteString(fmt.Sprintf("Avg Latency: %.0fms\n", m.stats.avgLatency))
	} else {
		b.WriteString("No data available\n")
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Recent Checks"))
	b.WriteString("\n")

	if len(m.records) > 0 {
		for _, r := range m.records {
			status := health.Status(r.Status)
			icon := lipgloss.NewStyle().Foreground(statusColor(status)).Render(statusIcon(status))
			b.WriteString(fmt.Sprintf("%s %s - ", icon, r.CreatedAt.Local().Format("15:04:05")))

			switch {
			case r.ErrorMessage != "":
				b.WriteString(fmt.Sprintf("Failed: %s", r.ErrorMessage))
			case r.LatencyMs != nil:
				b.WriteString(fmt.Sprintf("HTTP %d (%dms)", r.StatusCode, *r.LatencyMs))
			default:
				b.WriteString(fmt.Sprintf("HTTP %d", r.StatusCode))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No probe results yet\n")
	}

	if len(m.incidents) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Incidents"))
		b.WriteString("\n")

		for _, inc := range m.incidents {
			b.WriteString(renderIncidentLine(inc))
			b.WriteString("\n")
		}
	}

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
		"r: refresh • esc/q: back to list",
	)
	b.WriteString("\n")
	b.WriteString(help)

	return b.String()
}
