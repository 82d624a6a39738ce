package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"orderdash/internal/download"
)

var portalHeaders = []any{"Fecha", "Cliente", "Teléfono", "Tienda", "Producto", "Estado", "Estado de envío", "Total"}

// writeWorkbook saves a workbook shaped like the portal export: a nine row
// title block, the header row, then data.
func writeWorkbook(t *testing.T, path string, headers []any, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	title := []string{"Reporte de pedidos", "Generado por el portal", "", "Filtros:", "Todos", "", "", "", "Pedidos"}
	for i, line := range title {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetCellValue(sheet, cell, line))
	}
	require.NoError(t, f.SetSheetRow(sheet, "A10", &headers))
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+11)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func names(id string) string {
	if name, ok := map[string]string{"HN": "Honduras", "SV": "El Salvador"}[id]; ok {
		return name
	}
	return id
}

func scenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeWorkbook(t, download.Path(dir, "DATO_", "HN"), portalHeaders, [][]any{
		{"2024-05-01 10:00:00", "Ana", "9999-0000", "Tienda Centro", "Reloj", "Entregado", "Entregado", "L 1,250.00"},
		{"2024-05-02 18:30:00", "Luis", "", "", "Gorra", "Pendiente", "En ruta", "L 300.00"},
		{"2024-05-02 23:59:00", "Marta", "", "Tienda Norte", "", "Cancelado", "Devuelto", "N/D"},
	})
	writeWorkbook(t, download.Path(dir, "DATO_", "SV"), portalHeaders, [][]any{
		{"2024-05-01", "Jose", "7777-1111", "Tienda Sur", "Reloj", "Entregado", "Entregado", "$ 1,250.00"},
		{"2024-05-03", "Rosa", "", "Tienda Sur", "Bolso", "Entregado", "", "$45.50"},
		{"2024-05-03", "Pedro", "", "Tienda Sur", "Bolso", "Pendiente", "En ruta", "$ 10"},
	})
	return dir
}

func loadDir(t *testing.T, dir string, opts LoadOptions) *Table {
	t.Helper()
	sources, err := DiscoverSources(dir, "DATO_", names)
	require.NoError(t, err)
	if opts.HeaderRows == 0 {
		opts.HeaderRows = 9
	}
	table, err := Load(sources, opts)
	require.NoError(t, err)
	return table
}

func TestLoadTwoAccounts(t *testing.T) {
	table := loadDir(t, scenarioDir(t), LoadOptions{})

	require.Len(t, table.Orders, 6)
	require.Equal(t, 0, table.Dropped())
	require.Empty(t, table.Failed())

	hn := Filter{Selected: map[Field]map[string]bool{FieldOrigin: {"Honduras": true}}}.Apply(table.Orders)
	require.Len(t, hn, 3)
	hnTotal := Summarize(hn).Total
	require.True(t, hnTotal.GreaterThanOrEqual(decimal.NewFromInt(1250)), "HN total %s", hnTotal)
	require.True(t, hnTotal.Equal(decimal.NewFromInt(1550)))

	s := Summarize(table.Orders)
	require.Equal(t, 6, s.Count)

	// N/D became zero, blanks became placeholders
	require.True(t, table.Orders[2].Amount.IsZero())
	require.Equal(t, Unspecified, table.Orders[1].Store)
	require.Equal(t, Unspecified, table.Orders[2].Product)
	require.Equal(t, Unspecified, table.Orders[4].Shipment)
	require.Equal(t, "", table.Orders[1].Phone)

	// dates keep their literal calendar day
	require.Equal(t, "2024-05-02", table.Orders[2].Date.String())

	require.Equal(t, append(toStrings(portalHeaders), OriginColumn), table.Columns)
	require.Equal(t, "El Salvador", table.Orders[3].Raw[OriginColumn])
}

func TestLoadDateCells(t *testing.T) {
	dir := t.TempDir()
	path := download.Path(dir, "DATO_", "HN")
	writeWorkbook(t, path, []any{"Fecha", "Total"}, [][]any{
		{time.Date(2024, 5, 13, 10, 0, 0, 0, time.UTC), 1250},
		{time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), 300},
	})

	// second date cell gets the short date format (numFmt 14)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A12", "A12", style))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	table := loadDir(t, dir, LoadOptions{})
	require.Zero(t, table.Dropped())
	require.Len(t, table.Orders, 2)
	require.Equal(t, Date{Year: 2024, Month: time.May, Day: 13}, table.Orders[0].Date)
	require.Equal(t, Date{Year: 2024, Month: time.May, Day: 14}, table.Orders[1].Date)
	require.True(t, table.Orders[0].Amount.Equal(decimal.NewFromInt(1250)))
	// the raw view shows the calendar date, not the serial
	require.Equal(t, "2024-05-13", table.Orders[0].Raw["Fecha"])
}

func TestLoadOuterUnion(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, download.Path(dir, "DATO_", "HN"), []any{"Fecha", "Total", "Guía"}, [][]any{
		{"2024-05-01", "L 10", "G-1"},
	})
	writeWorkbook(t, download.Path(dir, "DATO_", "SV"), []any{"Fecha", "Total", "Notas"}, [][]any{
		{"2024-05-01", "$ 5", "llamar"},
		{"2024-05-02", "$ 6"},
	})

	table := loadDir(t, dir, LoadOptions{})
	require.Equal(t, []string{"Fecha", "Total", "Guía", "Notas", OriginColumn}, table.Columns)
	require.Len(t, table.Orders, 3)
	for _, o := range table.Orders {
		require.Len(t, o.Raw, len(table.Columns))
	}
	require.Equal(t, "", table.Orders[0].Raw["Notas"])
	require.Equal(t, "", table.Orders[1].Raw["Guía"])
	require.Equal(t, "", table.Orders[2].Raw["Notas"])
}

func TestLoadDropsUndatedAndEmptyRows(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, download.Path(dir, "DATO_", "HN"), portalHeaders, [][]any{
		{"2024-05-01", "Ana", "", "T", "P", "E", "E", "L 1"},
		{"", "", "", "", "", "", "", ""},
		{"sin fecha", "Luis", "", "T", "P", "E", "E", "L 2"},
		{"2024-05-03", "Rosa", "", "T", "P", "E", "E", "L 3"},
	})
	table := loadDir(t, dir, LoadOptions{})
	require.Len(t, table.Orders, 2)
	require.Equal(t, 1, table.Dropped())
	require.Equal(t, 2, table.Notes[0].Rows)
}

func TestLoadSkipsBrokenWorkbooks(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, download.Path(dir, "DATO_", "HN"), portalHeaders, [][]any{
		{"2024-05-01", "Ana", "", "T", "P", "E", "E", "L 1"},
	})
	// not a workbook at all
	require.NoError(t, os.WriteFile(download.Path(dir, "DATO_", "GT"), []byte("garbage"), 0644))
	// a workbook without the amount column
	writeWorkbook(t, download.Path(dir, "DATO_", "SV"), []any{"Fecha", "Cliente"}, [][]any{
		{"2024-05-01", "Jose"},
	})

	table := loadDir(t, dir, LoadOptions{})
	require.Len(t, table.Orders, 1)
	failed := table.Failed()
	require.Len(t, failed, 2)
	require.Equal(t, "GT", failed[0].Origin)
	require.ErrorIs(t, failed[1].Err, ErrMissingColumn)
}

func TestDiscoverSourcesNoData(t *testing.T) {
	_, err := DiscoverSources(t.TempDir(), "DATO_", names)
	require.ErrorIs(t, err, ErrNoData)

	_, err = Load(nil, LoadOptions{})
	require.ErrorIs(t, err, ErrNoData)
}

func TestLoadAppliesReturnRule(t *testing.T) {
	rule := &ReturnRule{Marker: "devuel", Amount: decimal.NewFromInt(-150)}
	table := loadDir(t, scenarioDir(t), LoadOptions{Returns: rule})
	require.True(t, table.Orders[2].Amount.Equal(decimal.NewFromInt(-150)))
	require.True(t, table.Orders[0].Amount.Equal(decimal.NewFromInt(1250)))
}

func TestParseRowsFindsHeaderAfterBlankRows(t *testing.T) {
	rows := [][]string{
		{"Reporte"}, {}, {},
		{}, {"Fecha", "Total"},
		{"2024-01-02", "L 5"},
	}
	headers, orders, dropped, err := parseRows(rows, "HN", LoadOptions{HeaderRows: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"Fecha", "Total"}, headers)
	require.Len(t, orders, 1)
	require.Zero(t, dropped)
}

func TestHeaderNames(t *testing.T) {
	got := headerNames([]string{" Estado ", "", "Estado"})
	require.Equal(t, []string{"Estado", "Column B", "Estado (2)"}, got)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.(string)
	}
	return out
}

func TestDiscoverSourcesUsesAccountNames(t *testing.T) {
	dir := scenarioDir(t)
	sources, err := DiscoverSources(dir, "DATO_", names)
	require.NoError(t, err)
	require.Equal(t, []Source{
		{Path: filepath.Join(dir, "DATO_HN.xlsx"), Origin: "Honduras"},
		{Path: filepath.Join(dir, "DATO_SV.xlsx"), Origin: "El Salvador"},
	}, sources)
}
