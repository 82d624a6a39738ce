package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"orderdash/internal/portal"
	"orderdash/internal/report"
)

var (
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	appStyle       = lipgloss.NewStyle().Margin(1, 2, 0, 2)
	redStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	greenStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boldStyle      = lipgloss.NewStyle().Bold(true)
	italicStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("241"))
	activeTabStyle = tabStyle.Foreground(lipgloss.Color("205")).Bold(true).Underline(true)
	kpiStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 2).MarginRight(1)
	panelStyle     = lipgloss.NewStyle().MarginRight(4).MarginBottom(1)
)

const (
	breakdownRows = 5
	chartDays     = 14
	barWidth      = 40
)

var orderColumns = []table.Column{
	{Title: "Date", Width: 10},
	{Title: "Origin", Width: 12},
	{Title: "Customer", Width: 22},
	{Title: "Store", Width: 16},
	{Title: "Product", Width: 22},
	{Title: "Status", Width: 12},
	{Title: "Shipment", Width: 14},
	{Title: "Amount", Width: 13},
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	return s
}

func orderRows(orders []report.Order, currency string) []table.Row {
	rows := make([]table.Row, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, table.Row{
			o.Date.String(),
			o.Origin,
			o.Customer,
			o.Store,
			o.Product,
			o.Status,
			o.Shipment,
			report.FormatMoney(currency, o.Amount),
		})
	}
	return rows
}

func rawColumns(names []string) []table.Column {
	cols := make([]table.Column, 0, len(names))
	for _, n := range names {
		cols = append(cols, table.Column{Title: n, Width: min(max(lipgloss.Width(n), 10), 24)})
	}
	return cols
}

func rawRows(orders []report.Order, columns []string) []table.Row {
	rows := make([]table.Row, 0, len(orders))
	for _, o := range orders {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = o.Raw[c]
		}
		rows = append(rows, row)
	}
	return rows
}

func renderScreen(m model) string {
	var s strings.Builder
	s.WriteString(renderTabs(m.view))
	s.WriteString("\n\n")

	if m.syncing || len(m.results) > 0 || m.syncErr != nil {
		s.WriteString(renderSync(m))
		s.WriteString("\n")
	}

	switch {
	case errors.Is(m.loadErr, report.ErrNoData):
		s.WriteString("No data yet. Press s to download the order exports.\n")
	case m.loadErr != nil:
		s.WriteString(redStyle.Render("Failed to load workbooks: "+m.loadErr.Error()) + "\n")
	case m.table == nil:
		s.WriteString(italicStyle.Render("loading...") + "\n")
	default:
		switch m.view {
		case viewDashboard:
			s.WriteString(renderDashboard(m))
		case viewOrders:
			s.WriteString(m.orders.View())
			mode := "normalized columns"
			if m.raw {
				mode = fmt.Sprintf("all %d source columns", len(m.table.Columns))
			}
			s.WriteString("\n" + italicStyle.Render(fmt.Sprintf("%d of %d orders, %s", len(m.filtered), len(m.table.Orders), mode)))
		case viewFilters:
			s.WriteString(renderFilters(m))
		}
	}

	help := "s sync • r refresh • tab view • d dates • c clear filters • q quit"
	switch m.view {
	case viewFilters:
		help = "↑/↓ move • space toggle • " + help
	case viewOrders:
		help = "w raw columns • " + help
	}
	s.WriteString(helpStyle.Render(help))
	return s.String()
}

func renderTabs(active view) string {
	tabs := []string{boldStyle.Render("ORDERDASH")}
	for i, name := range viewNames {
		if view(i) == active {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func renderSync(m model) string {
	var s strings.Builder
	if m.syncErr != nil {
		s.WriteString(redStyle.Render("Sync not started: "+m.syncErr.Error()) + "\n")
	}
	done := map[string]portal.Result{}
	for _, r := range m.results {
		done[r.Account.ID] = r
	}
	for _, acct := range m.app.cfg.Accounts {
		if r, ok := done[acct.ID]; ok {
			if r.OK() {
				s.WriteString(greenStyle.Render("✓ ") + r.Short() + "\n")
			} else {
				s.WriteString(redStyle.Render("✗ "+r.Short()) + "\n")
			}
			continue
		}
		e, ok := m.progress[acct.ID]
		switch {
		case !ok && m.syncing:
			s.WriteString(italicStyle.Render("• "+acct.Name+": waiting") + "\n")
		case !ok:
		case e.Stage == portal.StageDone:
			s.WriteString(greenStyle.Render("✓ ") + e.Message + "\n")
		case e.Stage == portal.StageFailed:
			s.WriteString(redStyle.Render("✗ "+e.Message) + "\n")
		default:
			s.WriteString(fmt.Sprintf("%s %s: %s\n", m.spinner.View(), acct.Name, e.Message))
		}
	}
	return s.String()
}

func renderDashboard(m model) string {
	cur := m.app.cfg.Report.Currency
	sum := m.summary

	var s strings.Builder
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		kpiStyle.Render(fmt.Sprintf("Orders\n%s", boldStyle.Render(fmt.Sprint(sum.Count)))),
		kpiStyle.Render(fmt.Sprintf("Total\n%s", boldStyle.Render(report.FormatMoney(cur, sum.Total)))),
		kpiStyle.Render(fmt.Sprintf("Average\n%s", boldStyle.Render(report.FormatMoney(cur, sum.Mean)))),
	))
	s.WriteString("\n")
	s.WriteString(italicStyle.Render(describeFilter(m.filter, datePresets[m.preset].label)) + "\n")
	for _, note := range m.table.Failed() {
		s.WriteString(redStyle.Render(fmt.Sprintf("%s: %v", note.Origin, note.Err)) + "\n")
	}
	if n := m.table.Dropped(); n > 0 {
		s.WriteString(italicStyle.Render(fmt.Sprintf("%d rows without a valid date were skipped", n)) + "\n")
	}
	s.WriteString("\n")

	if sum.Count == 0 {
		s.WriteString("No orders match the filter.\n")
		return s.String()
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(renderBars(sum.ByDate, cur)),
		panelStyle.Render(renderBreakdown(report.FieldOrigin, sum.Breakdowns[report.FieldOrigin], cur)),
	))
	s.WriteString("\n")

	var panels []string
	for _, f := range report.CategoricalFields {
		if f == report.FieldOrigin {
			continue
		}
		panels = append(panels, panelStyle.Render(renderBreakdown(f, sum.Breakdowns[f], cur)))
	}
	for len(panels) > 0 {
		n := min(2, len(panels))
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels[:n]...))
		s.WriteString("\n")
		panels = panels[n:]
	}
	return s.String()
}

// renderBars draws the daily totals of the latest chartDays dates.
func renderBars(points []report.DatePoint, currency string) string {
	if len(points) > chartDays {
		points = points[len(points)-chartDays:]
	}
	peak := decimal.Zero
	for _, p := range points {
		if p.Total.GreaterThan(peak) {
			peak = p.Total
		}
	}

	var s strings.Builder
	s.WriteString(boldStyle.Render("Daily total") + "\n")
	for _, p := range points {
		n := 0
		if peak.IsPositive() && p.Total.IsPositive() {
			n = int(p.Total.Div(peak).Mul(decimal.NewFromInt(barWidth)).Ceil().IntPart())
		}
		s.WriteString(fmt.Sprintf("%-10s %s %s\n",
			p.Date.String(),
			barStyle.Render(strings.Repeat("█", n)+strings.Repeat(" ", barWidth-n)),
			report.FormatMoney(currency, p.Total)))
	}
	return s.String()
}

func renderBreakdown(f report.Field, buckets []report.Bucket, currency string) string {
	var s strings.Builder
	s.WriteString(boldStyle.Render("By "+f.String()) + "\n")
	for i, b := range buckets {
		if i == breakdownRows {
			s.WriteString(italicStyle.Render(fmt.Sprintf("+%d more", len(buckets)-breakdownRows)) + "\n")
			break
		}
		s.WriteString(fmt.Sprintf("%-24s %4d %14s\n", truncateLabel(b.Key, 24), b.Count, report.FormatMoney(currency, b.Total)))
	}
	return s.String()
}

func renderFilters(m model) string {
	var s strings.Builder
	s.WriteString(fmt.Sprintf("Dates: %s", boldStyle.Render(datePresets[m.preset].label)))
	if m.filter.Active() && !m.filter.From.IsZero() {
		s.WriteString(italicStyle.Render(fmt.Sprintf("  (%s to %s)", m.filter.From, m.filter.To)))
	}
	s.WriteString("\n")

	// only a window of items around the cursor fits on screen
	visible := max(5, m.height-10)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	var last report.Field = -1
	for i := start; i < len(m.items) && i < start+visible; i++ {
		it := m.items[i]
		if it.field != last {
			s.WriteString("\n" + boldStyle.Render(it.field.String()) + "\n")
			last = it.field
		}
		box := "[ ]"
		if m.filter.IsSelected(it.field, it.value) {
			box = greenStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s", box, it.value)
		if i == m.cursor {
			line = activeTabStyle.UnsetPadding().Render("▶ ") + line
		} else {
			line = "  " + line
		}
		s.WriteString(line + "\n")
	}
	return s.String()
}

func describeFilter(f report.Filter, dates string) string {
	if len(f.Selected) == 0 {
		return "All orders, " + dates
	}
	var parts []string
	for _, field := range report.CategoricalFields {
		if n := len(f.Selected[field]); n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d selected", field, n))
		}
	}
	return strings.Join(parts, " · ") + ", " + dates
}

func truncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
