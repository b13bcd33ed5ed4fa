package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/incident"
	"github.com/ankityadav/statusboard/internal/storage"
	"github.com/ankityadav/statusboard/internal/uptime"
)

var (
	graphUpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	graphDownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	metricLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	metricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255"))

	uptimeGoodStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	uptimeBadStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1).
			MarginBottom(1)

	sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
)

type DashboardModel struct {
	src           Source
	snap          snapshot
	loaded        bool
	width         int
	height        int
	selectedIndex int
}

type dashTickMsg time.Time

func NewDashboard(src Source) DashboardModel {
	return DashboardModel{src: src}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		loadCmd(m.src),
		dashTickCmd(),
	)
}

func dashTickCmd() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "j", "down":
			if m.selectedIndex < len(m.snap.status.Services)-1 {
				m.selectedIndex++
			}
		case "k", "up":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
		case "r":
			return m, loadCmd(m.src)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case dashTickMsg:
		return m, tea.Batch(loadCmd(m.src), dashTickCmd())

	case snapshotMsg:
		m.snap = snapshot(msg)
		m.loaded = true
		if m.selectedIndex >= len(m.snap.status.Services) {
			m.selectedIndex = max(len(m.snap.status.Services)-1, 0)
		}
	}

	return m, nil
}

func (m DashboardModel) View() string {
	if m.width == 0 || !m.loaded {
		return "Loading..."
	}

	var b strings.Builder
	st := m.snap.status

	header := headerStyle.Width(m.width - 2).Render(
		fmt.Sprintf("📊 Status Dashboard • %d services • Updated: %s",
			len(st.Services),
			m.snap.loadedAt.Format("15:04:05")))
	b.WriteString(header)
	b.WriteString("\n\n")

	if !m.snap.hasStatus {
		b.WriteString(metricLabelStyle.Render("Waiting for the first probe cycle..."))
		return b.String()
	}

	b.WriteString(renderBanner(st, m.width-4))
	b.WriteString("\n\n")

	b.WriteString(m.renderSummaryCards(health.CountStatuses(statusesOf(st.Services))))
	b.WriteString("\n\n")

	b.WriteString(renderUptimeBar(m.snap.history, m.width-4))
	b.WriteString("\n\n")

	if active := m.snap.incidents.Active; len(active) > 0 {
		b.WriteString(renderIncidentBanner(active))
		b.WriteString("\n\n")
	}

	for i, svc := range st.Services {
		b.WriteString(m.renderServiceCard(svc, i == m.selectedIndex))
		b.WriteString("\n")
	}

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
		"j/k: navigate • r: refresh • q: quit")
	b.WriteString("\n")
	b.WriteString(help)

	return b.String()
}

func statusesOf(services []health.ServiceHealth) []health.Status {
	out := make([]health.Status, len(services))
	for i, s := range services {
		out[i] = s.Status
	}
	return out
}

func renderBanner(st health.SystemStatus, width int) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("232")).
		Background(statusColor(st.Overall)).
		Padding(0, 2).
		Width(width).
		Render(fmt.Sprintf("%s %s  •  %.2f%% of services up  •  checked %s ago",
			statusIcon(st.Overall),
			st.Overall.Headline(),
			st.UptimePercentage,
			formatTimeAgo(st.LastUpdated)))
}

func (m DashboardModel) renderSummaryCards(c health.Counts) string {
	card := func(color lipgloss.Color, value, label string, style lipgloss.Style) string {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(color).
			Padding(0, 2).
			Render(fmt.Sprintf("%s\n%s", style.Render(value), metricLabelStyle.Render(label)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		card(statusColor(health.StatusOperational), fmt.Sprintf("✓ %d UP", c.Operational), "Operational", uptimeGoodStyle),
		"  ",
		card(statusColor(health.StatusDegraded), fmt.Sprintf("⚠ %d DEGRADED", c.Degraded), "Issues", metricValueStyle),
		"  ",
		card(statusColor(health.StatusOutage), fmt.Sprintf("✗ %d DOWN", c.Outage), "Outage", uptimeBadStyle),
		"  ",
		card(statusColor(health.StatusUnknown), fmt.Sprintf("? %d UNKNOWN", c.Unknown), "Unreachable", metricValueStyle),
	)
}

// renderUptimeBar draws one cell per day, oldest on the left.
func renderUptimeBar(history []uptime.DailyUptime, width int) string {
	if len(history) == 0 {
		return metricLabelStyle.Render("No uptime history")
	}

	days := history
	if width > 0 && len(days) > width {
		days = days[len(days)-width:]
	}

	var bar strings.Builder
	for _, d := range days {
		style := lipgloss.NewStyle().Foreground(uptimeColor(d))
		bar.WriteString(style.Render("█"))
	}

	total := uptime.CalculateUptimePercentage(history)
	totalStyle := uptimeGoodStyle
	if total < 99 {
		totalStyle = uptimeBadStyle
	}

	return fmt.Sprintf("%s  %s\n%s\n%s",
		metricLabelStyle.Render(fmt.Sprintf("Uptime (last %d days)", len(history))),
		totalStyle.Render(fmt.Sprintf("%.2f%%", health.Round2(total))),
		bar.String(),
		metricLabelStyle.Render(fmt.Sprintf("%s%s", days[0].Date, strings.Repeat(" ", max(len(days)-len(days[0].Date)-5, 1))+"Today")))
}

func uptimeColor(d uptime.DailyUptime) lipgloss.Color {
	switch {
	case d.Checks == 0:
		return lipgloss.Color("240")
	case d.Uptime >= 99.9:
		return lipgloss.Color("42")
	case d.Uptime >= 99:
		return lipgloss.Color("84")
	case d.Uptime >= 95:
		return lipgloss.Color("226")
	case d.Uptime >= 90:
		return lipgloss.Color("208")
	default:
		return lipgloss.Color("196")
	}
}

func renderIncidentBanner(active []incident.Incident) string {
	var b strings.Builder
	b.WriteString(uptimeBadStyle.Render(fmt.Sprintf("⚠ %d active incident(s)", len(active))))
	for _, inc := range active {
		b.WriteString("\n  ")
		b.WriteString(lipgloss.NewStyle().Foreground(namedColor(inc.Severity.Color())).Render("● " + inc.Title))
		b.WriteString(metricLabelStyle.Render(fmt.Sprintf("  %s • %s", inc.Status, formatDuration(inc.Duration()))))
	}
	return b.String()
}

func (m DashboardModel) renderServiceCard(svc health.ServiceHealth, selected bool) string {
	results := m.snap.probes[svc.ServiceID]

	var avgLatency, minLatency, maxLatency int64
	var measured, successCount int
	if len(results) > 0 {
		minLatency = math.MaxInt64
		for _, r := range results {
			if r.Success() {
				successCount++
			}
			if r.LatencyMs == nil {
				continue
			}
			ms := *r.LatencyMs
			measured++
			avgLatency += ms
			minLatency = min(minLatency, ms)
			maxLatency = max(maxLatency, ms)
		}
		if measured > 0 {
			avgLatency /= int64(measured)
		}
		if minLatency == math.MaxInt64 {
			minLatency = 0
		}
	}

	ratio := float64(0)
	if len(results) > 0 {
		ratio = float64(successCount) / float64(len(results)) * 100
	}

	var content strings.Builder

	nameRow := fmt.Sprintf("%s %s  %s",
		lipgloss.NewStyle().Foreground(statusColor(svc.Status)).Render("●"),
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Render(svc.Name),
		metricLabelStyle.Render(svc.Group.DisplayName()+" • "+svc.Description))
	content.WriteString(nameRow)
	content.WriteString("\n\n")

	content.WriteString(metricLabelStyle.Render(fmt.Sprintf("Latency (last %d checks):", sparklineChecks)))
	content.WriteString("\n")
	content.WriteString(renderSparkline(results, 50))
	content.WriteString("\n\n")

	metricsRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderMetric("Status", string(svc.Status), svc.Status == health.StatusOperational),
		"   ",
		renderMetric("Latency", svc.Latency.String(), svc.Latency.IsMeasured()),
		"   ",
		renderMetric("Operational", fmt.Sprintf("%.1f%%", ratio), ratio >= 99),
		"   ",
		renderMetric("Avg", fmt.Sprintf("%dms", avgLatency), true),
		"   ",
		renderMetric("Min", fmt.Sprintf("%dms", minLatency), true),
		"   ",
		renderMetric("Max", fmt.Sprintf("%dms", maxLatency), maxLatency < 1000),
	)
	content.WriteString(metricsRow)

	if svc.Error != "" {
		content.WriteString("\n\n")
		content.WriteString(uptimeBadStyle.Render(svc.Error))
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(statusColor(svc.Status)).
		Padding(1, 2).
		Width(m.width - 4)

	if selected {
		cardStyle = cardStyle.
			BorderForeground(lipgloss.Color("170")).
			BorderStyle(lipgloss.DoubleBorder())
	}

	return cardStyle.Render(content.String())
}

// renderSparkline expects records newest first and draws them oldest to
// newest. Failed or unmeasured probes are drawn as red half blocks.
func renderSparkline(records []storage.ProbeRecord, width int) string {
	if len(records) == 0 {
		return metricLabelStyle.Render("No data yet")
	}

	reversed := make([]storage.ProbeRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	if len(reversed) > width {
		reversed = reversed[len(reversed)-width:]
	}

	var maxTime int64 = 1
	for _, r := range reversed {
		if r.LatencyMs != nil && *r.LatencyMs > maxTime {
			maxTime = *r.LatencyMs
		}
	}

	var spark strings.Builder
	for _, r := range reversed {
		if !r.Success() || r.LatencyMs == nil {
			spark.WriteString(graphDownStyle.Render("▄"))
			continue
		}

		ms := *r.LatencyMs
		blockIdx := int(float64(ms) / float64(maxTime) * float64(len(sparkBlocks)-1))
		blockIdx = min(max(blockIdx, 0), len(sparkBlocks)-1)

		block := string(sparkBlocks[blockIdx])
		switch {
		case ms < 200:
			spark.WriteString(graphUpStyle.Render(block))
		case ms < 500:
			spark.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(block))
		default:
			spark.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render(block))
		}
	}

	return spark.String() + metricLabelStyle.Render(fmt.Sprintf(" (0-%dms)", maxTime))
}

func renderMetric(label, value string, good bool) string {
	valueStyle := metricValueStyle
	if !good {
		valueStyle = uptimeBadStyle
	}
	return fmt.Sprintf("%s\n%s",
		valueStyle.Render(value),
		metricLabelStyle.Render(label))
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return formatDuration(time.Since(t))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}
