package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/tui/components/table"
	"github.com/grovetools/fleetview/tui/theme"
)

const (
	statsWidth      = 30
	maxScanRows     = 8
	maxPredictions  = 6
	defaultMapLines = 16
)

// View renders the dashboard.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	if f := m.renderFailure(); f != "" {
		sections = append(sections, f)
	}

	mapPanel := m.theme.Box.Render(m.renderMapPanel())
	statsPanel := m.theme.Box.Width(statsWidth).Render(m.renderStats())
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, " ", statsPanel))

	sections = append(sections, m.renderScans())
	if p := m.renderPredictions(); p != "" {
		sections = append(sections, p)
	}
	if m.notice != "" {
		style := m.theme.Muted
		if !m.noticeOK {
			style = m.theme.Warning
		}
		sections = append(sections, style.Render(m.notice))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	t := m.theme
	conn := m.view.Connection

	icon := theme.IconUnlink
	if conn.Connected() {
		icon = theme.IconLink
	}
	parts := []string{
		t.Header.Render(theme.IconRobot + " fleetview"),
		t.PhaseStyle(conn.Phase).Render(fmt.Sprintf("%s %s", icon, phaseLabel(conn.Phase))),
		t.Muted.Render(fmt.Sprintf("gen %d", conn.Generation)),
		t.Muted.Render(fmt.Sprintf("zoom %.1fx", m.zoom.State().Zoom)),
	}
	if m.view.Paused {
		parts = append(parts, t.Warning.Render(theme.IconPause+" PAUSED"))
	}
	if m.view.HasSnapshot {
		parts = append(parts, t.Muted.Render("updated "+humanize.RelTime(m.view.FetchedAt, m.clock.Now(), "ago", "from now")))
	}
	return strings.Join(parts, "  ")
}

func phaseLabel(p models.ConnectionPhase) string {
	if p == "" {
		return string(models.PhaseConnecting)
	}
	return string(p)
}

func (m *Model) renderFailure() string {
	f := m.view.LastFailure
	if f == nil {
		return ""
	}
	when := humanize.RelTime(f.At, m.clock.Now(), "ago", "from now")
	return m.theme.Error.Render(fmt.Sprintf("%s last fetch failed %s: %s", theme.IconWarning, when, f.Err))
}

func (m *Model) renderMapPanel() string {
	maxW := 0
	if m.width > 0 {
		maxW = m.width - statsWidth - 6
	}
	maxH := defaultMapLines
	if m.height > 0 {
		maxH = m.height / 2
	}
	return renderMap(m.engine, m.zoom.State(), m.view.Robots, m.theme, maxW, maxH)
}

func (m *Model) renderStats() string {
	t := m.theme
	if !m.view.HasSnapshot {
		return t.Muted.Render("waiting for first snapshot")
	}
	s := m.view.Statistics

	var offline, low int
	for _, r := range m.view.Robots {
		switch r.Status {
		case models.RobotOffline:
			offline++
		case models.RobotLowBattery:
			low++
		}
	}

	rows := [][]string{
		{"Active robots", fmt.Sprintf("%d / %d", s.ActiveRobots, s.TotalRobots)},
		{"Low battery", t.RobotStyle(models.RobotLowBattery).Render(humanize.Comma(int64(low)))},
		{"Offline", t.RobotStyle(models.RobotOffline).Render(humanize.Comma(int64(offline)))},
		{"Scanned today", humanize.Comma(int64(s.ScannedToday))},
		{"Critical items", t.SeverityStyle(models.SeverityCritical).Render(humanize.Comma(int64(s.CriticalItems)))},
		{"Avg battery", humanize.FtoaWithDigits(s.AvgBattery, 1) + "%"},
	}
	return t.Title.Render("Statistics") + "\n" + table.StatusTable(rows)
}

func (m *Model) renderScans() string {
	t := m.theme
	title := t.Title.Render(theme.IconScan + " Recent scans")
	if len(m.view.Scans) == 0 {
		return title + "\n" + t.Muted.Render("no scans yet")
	}

	// newest first
	var rows [][]string
	var severities []models.Severity
	for i := len(m.view.Scans) - 1; i >= 0 && len(rows) < maxScanRows; i-- {
		s := m.view.Scans[i]
		name := s.ProductName
		if name == "" {
			name = s.ProductID
		}
		rows = append(rows, []string{
			s.Time.Format("15:04:05"),
			s.RobotID,
			fmt.Sprintf("%s-%d", s.Zone, s.Row),
			name,
			humanize.Comma(int64(s.Quantity)),
			string(s.Severity),
		})
		severities = append(severities, s.Severity)
	}

	tbl := table.NewBuilder().
		WithTheme(t).
		WithHeaders("TIME", "ROBOT", "LOCATION", "PRODUCT", "QTY", "STATUS").
		WithRows(rows...).
		WithStyler(func(row, col int, base lipgloss.Style) lipgloss.Style {
			if col == 5 && row >= 0 && row < len(severities) {
				return base.Inherit(t.SeverityStyle(severities[row]))
			}
			return base
		}).
		Build()
	return title + "\n" + tbl.String()
}

func (m *Model) renderPredictions() string {
	t := m.theme
	if len(m.view.Predictions) == 0 {
		return ""
	}

	lines := []string{t.Title.Render(theme.IconForecast + " Restock predictions")}
	for i, p := range m.view.Predictions {
		if i == maxPredictions {
			lines = append(lines, t.Muted.Render(fmt.Sprintf("… %d more", len(m.view.Predictions)-i)))
			break
		}
		outlook := t.Success.Render("no stockout expected")
		if p.HasStockout() {
			outlook = t.Warning.Render(fmt.Sprintf("stockout in %s", pluralDays(p.DaysUntilStockout)))
		}
		lines = append(lines, fmt.Sprintf("%s  stock %s  %s  order %s",
			t.Bold.Render(p.Label()),
			humanize.Comma(int64(p.CurrentStock)),
			outlook,
			humanize.Comma(int64(p.RecommendedOrder)),
		))
	}
	return strings.Join(lines, "\n")
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
