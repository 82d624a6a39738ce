package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"orderdash/internal/report"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

// writeReport prints the KPIs, per-date series and breakdowns of the orders
// that pass flt.
func writeReport(w io.Writer, currency string, tbl *report.Table, flt report.Filter, top int) {
	orders := flt.Apply(tbl.Orders)
	sum := report.Summarize(orders)
	kpi := newTable(w, "Orders")
	kpi.AppendRows([]table.Row{
		{"Orders", sum.Count},
		{"Total", report.FormatMoney(currency, sum.Total)},
		{"Average", report.FormatMoney(currency, sum.Mean)},
	})
	if n := tbl.Dropped(); n > 0 {
		kpi.AppendRow(table.Row{"Rows without date", n})
	}
	kpi.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	kpi.Render()

	for _, note := range tbl.Failed() {
		fmt.Fprintln(w, redStyle.Render(fmt.Sprintf("%s: %v", note.Origin, note.Err)))
	}
	if sum.Count == 0 {
		fmt.Fprintln(w, "No orders match the filter.")
		return
	}

	series := newTable(w, "By date")
	series.AppendHeader(table.Row{"Date", "Orders", "Total"})
	for _, p := range sum.ByDate {
		series.AppendRow(table.Row{p.Date.String(), p.Count, report.FormatMoney(currency, p.Total)})
	}
	series.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	series.Render()

	for _, f := range report.CategoricalFields {
		buckets := sum.Breakdowns[f]
		t := newTable(w, "By "+f.String())
		t.AppendHeader(table.Row{f.String(), "Orders", "Total"})
		for i, b := range buckets {
			if top > 0 && i == top {
				t.AppendRow(table.Row{fmt.Sprintf("+%d more", len(buckets)-top), "", ""})
				break
			}
			t.AppendRow(table.Row{b.Key, b.Count, report.FormatMoney(currency, b.Total)})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, WidthMax: 40},
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
		})
		t.Render()
	}
}

// writeRaw prints the orders that pass flt with every source column.
func writeRaw(w io.Writer, tbl *report.Table, flt report.Filter) {
	t := newTable(w, "Orders")
	header := make(table.Row, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, o := range flt.Apply(tbl.Orders) {
		row := make(table.Row, len(tbl.Columns))
		for i, c := range tbl.Columns {
			row[i] = o.Raw[c]
		}
		t.AppendRow(row)
	}
	t.Render()
}
