package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/statusboard/internal/health"
)

type sessionState int

const (
	listView sessionState = iota
	detailView
	incidentsView
)

type Model struct {
	src       Source
	state     sessionState
	list      listModel
	detail    detailModel
	incidents incidentsModel
	snap      snapshot
	width     int
	height    int
}

type tickMsg time.Time

func New(src Source) Model {
	return Model{
		src:       src,
		state:     listView,
		list:      newListModel(),
		detail:    newDetailModel(src.Probes),
		incidents: newIncidentsModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadCmd(m.src),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state == listView {
				return m, tea.Quit
			}
			m.state = listView
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(loadCmd(m.src), tickCmd())

	case snapshotMsg:
		m.snap = snapshot(msg)
		m.list.setSnapshot(m.snap)
		m.incidents.setSnapshot(m.snap)
		if m.state == detailView {
			return m, m.detail.setSnapshot(m.snap)
		}
		return m, nil

	case ServiceSelectedMsg:
		m.state = detailView
		return m, m.detail.setService(msg.ServiceID, m.snap)

	case ShowIncidentsMsg:
		m.state = incidentsView
		return m, nil

	case BackToListMsg:
		m.state = listView
		return m, nil

	case refreshMsg:
		return m, loadCmd(m.src)
	}

	switch m.state {
	case listView:
		listModel, listCmd := m.list.Update(msg)
		m.list = listModel
		cmds = append(cmds, listCmd)

	case detailView:
		detailModel, detailCmd := m.detail.Update(msg)
		m.detail = detailModel
		cmds = append(cmds, detailCmd)

	case incidentsView:
		incidentsModel, incidentsCmd := m.incidents.Update(msg)
		m.incidents = incidentsModel
		cmds = append(cmds, incidentsCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case listView:
		return m.list.View()
	case detailView:
		return m.detail.View()
	case incidentsView:
		return m.incidents.View()
	default:
		return "Unknown state"
	}
}

type ServiceSelectedMsg struct {
	ServiceID string
}

type ShowIncidentsMsg struct{}

type BackToListMsg struct{}

type refreshMsg struct{}

func serviceSelected(id string) tea.Cmd {
	return func() tea.Msg {
		return ServiceSelectedMsg{ServiceID: id}
	}
}

func showIncidents() tea.Cmd {
	return func() tea.Msg {
		return ShowIncidentsMsg{}
	}
}

func backToList() tea.Cmd {
	return func() tea.Msg {
		return BackToListMsg{}
	}
}

func refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{}
	}
}

func statusColor(s health.Status) lipgloss.Color {
	switch s {
	case health.StatusOperational:
		return lipgloss.Color("42")
	case health.StatusDegraded:
		return lipgloss.Color("226")
	case health.StatusOutage:
		return lipgloss.Color("196")
	default:
		return lipgloss.Color("244")
	}
}

func statusIcon(s health.Status) string {
	switch s {
	case health.StatusOperational:
		return "✓"
	case health.StatusDegraded:
		return "⚠"
	case health.StatusOutage:
		return "✗"
	default:
		return "?"
	}
}

// namedColor maps the incident palette onto terminal colors.
func namedColor(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("196")
	case "orange":
		return lipgloss.Color("208")
	case "yellow":
		return lipgloss.Color("226")
	case "green":
		return lipgloss.Color("42")
	case "blue":
		return lipgloss.Color("39")
	default:
		return lipgloss.Color("244")
	}
}
