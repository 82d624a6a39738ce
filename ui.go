package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"orderdash/internal/portal"
	"orderdash/internal/report"
)

type view int

const (
	viewDashboard view = iota
	viewOrders
	viewFilters
)

var viewNames = []string{"Dashboard", "Orders", "Filters"}

// messages
type tableLoadedMsg struct {
	table *report.Table
	err   error
}

type syncEventMsg portal.Event

type syncDoneMsg struct {
	results []portal.Result
	err     error
}

// programRef lets the background sync reach the running program.
// It is shared by every copy of the model.
type programRef struct {
	p      *tea.Program
	cancel context.CancelFunc
}

func (r *programRef) send(msg tea.Msg) {
	if r.p != nil {
		r.p.Send(msg)
	}
}

func (r *programRef) stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

type filterItem struct {
	field report.Field
	value string
}

type model struct {
	app *app
	ref *programRef

	spinner spinner.Model
	orders  table.Model
	view    view
	width   int
	height  int

	table    *report.Table
	loadErr  error
	filter   report.Filter
	preset   int
	domain   report.Domain
	items    []filterItem
	cursor   int
	filtered []report.Order
	summary  report.Summary
	// raw shows every source column in the orders view
	raw bool

	syncing  bool
	progress map[string]portal.Event
	results  []portal.Result
	syncErr  error

	quitting bool
}

func newModel(a *app) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	t := table.New(
		table.WithColumns(orderColumns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())

	return model{
		app:      a,
		ref:      &programRef{},
		spinner:  s,
		orders:   t,
		filter:   report.NewFilter(),
		progress: map[string]portal.Event{},
	}
}

func (m model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m model) loadCmd() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		t, err := a.loadTable()
		return tableLoadedMsg{table: t, err: err}
	}
}

// startSync runs the extraction in the background; progress events reach
// Update through Program.Send.
func (m *model) startSync() tea.Cmd {
	m.syncing = true
	m.syncErr = nil
	m.results = nil
	m.progress = map[string]portal.Event{}

	ctx, cancel := context.WithCancel(context.Background())
	m.ref.cancel = cancel
	a, ref := m.app, m.ref
	run := func() tea.Msg {
		defer cancel()
		results, err := a.sync(ctx, func(e portal.Event) {
			ref.send(syncEventMsg(e))
		})
		return syncDoneMsg{results: results, err: err}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.orders.SetHeight(max(5, msg.Height-12))
		return m, nil

	case tableLoadedMsg:
		m.table, m.loadErr = msg.table, msg.err
		if msg.err != nil && !errors.Is(msg.err, report.ErrNoData) {
			slog.Error("Failed to load workbooks", "error", msg.err)
		}
		m.refresh()
		return m, nil

	case syncEventMsg:
		m.progress[msg.Account.ID] = portal.Event(msg)
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		m.results, m.syncErr = msg.results, msg.err
		return m, m.loadCmd()

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.ref.stop()
			return m, tea.Quit
		case "tab":
			m.view = (m.view + 1) % view(len(viewNames))
			return m, nil
		case "shift+tab":
			m.view = (m.view + view(len(viewNames)) - 1) % view(len(viewNames))
			return m, nil
		case "s":
			if m.syncing {
				return m, nil
			}
			return m, m.startSync()
		case "r":
			return m, m.loadCmd()
		case "c":
			m.filter = report.NewFilter()
			m.preset = 0
			m.refresh()
			return m, nil
		case "d":
			m.preset = (m.preset + 1) % len(datePresets)
			m.refresh()
			return m, nil
		}

		switch m.view {
		case viewOrders:
			if msg.String() == "w" {
				m.raw = !m.raw
				m.fillOrders()
				return m, nil
			}
			var cmd tea.Cmd
			m.orders, cmd = m.orders.Update(msg)
			return m, cmd
		case viewFilters:
			switch msg.String() {
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.items)-1 {
					m.cursor++
				}
			case " ", "space", "enter":
				if m.cursor < len(m.items) {
					it := m.items[m.cursor]
					m.filter.Toggle(it.field, it.value)
					m.refresh()
				}
			}
		}
		return m, nil
	}
	return m, nil
}

// refresh recomputes everything derived from the table and the filter.
func (m *model) refresh() {
	var orders []report.Order
	if m.table != nil {
		orders = m.table.Orders
	}
	m.domain = report.Domains(orders)
	m.pruneFilter()
	datePresets[m.preset].apply(&m.filter, m.domain.MaxDate)

	m.items = m.items[:0]
	for _, f := range report.CategoricalFields {
		for _, v := range m.domain.Values[f] {
			m.items = append(m.items, filterItem{field: f, value: v})
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}

	m.filtered = m.filter.Apply(orders)
	m.summary = report.Summarize(m.filtered)
	m.fillOrders()
}

// fillOrders loads the orders table, normalized or with the source columns.
func (m *model) fillOrders() {
	cols, rows := orderColumns, orderRows(m.filtered, m.app.cfg.Report.Currency)
	if m.raw && m.table != nil {
		cols, rows = rawColumns(m.table.Columns), rawRows(m.filtered, m.table.Columns)
	}
	// rows must never be wider than the columns while they are swapped
	m.orders.SetRows(nil)
	m.orders.SetColumns(cols)
	m.orders.SetRows(rows)
}

// pruneFilter drops selections that are no longer in the data, so a stale
// choice cannot hide every row after a sync.
func (m *model) pruneFilter() {
	for f, set := range m.filter.Selected {
		known := map[string]bool{}
		for _, v := range m.domain.Values[f] {
			known[v] = true
		}
		for v := range set {
			if !known[v] {
				m.filter.Toggle(f, v)
			}
		}
	}
}

type datePreset struct {
	label string
	days  int // 0: no bound; -1: calendar month of the latest order
}

var datePresets = []datePreset{
	{label: "all dates"},
	{label: "last 7 days", days: 7},
	{label: "last 30 days", days: 30},
	{label: "latest month", days: -1},
}

// apply sets the filter range relative to the latest order date.
func (p datePreset) apply(f *report.Filter, latest report.Date) {
	f.From, f.To = report.Date{}, report.Date{}
	if p.days == 0 || latest.IsZero() {
		return
	}
	f.To = latest
	if p.days < 0 {
		f.From = report.Date{Year: latest.Year, Month: latest.Month, Day: 1}
		return
	}
	f.From = latest.AddDays(1 - p.days)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	return appStyle.Render(renderScreen(m))
}
