package report

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"orderdash/internal/download"
)

// LoadOptions controls how workbooks are read.
type LoadOptions struct {
	// HeaderRows is the size of the title block above the real header row.
	HeaderRows int
	Rules      []ColumnRule
	// Returns, when non-nil, is applied to every loaded order.
	Returns *ReturnRule
}

func (o LoadOptions) rules() []ColumnRule {
	if len(o.Rules) == 0 {
		return DefaultRules
	}
	return o.Rules
}

// Source is one workbook and the origin label its rows receive.
type Source struct {
	Path   string
	Origin string
}

// DiscoverSources lists the finalized workbooks in dir and labels each one
// with the display name of the account encoded in its file name.
func DiscoverSources(dir, prefix string, name func(accountID string) string) ([]Source, error) {
	files, err := download.Discover(dir, prefix)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoData
	}
	sources := make([]Source, 0, len(files))
	for _, f := range files {
		id := download.AccountID(f, prefix)
		origin := id
		if name != nil {
			origin = name(id)
		}
		sources = append(sources, Source{Path: f, Origin: origin})
	}
	return sources, nil
}

// Load reads every source and unions the rows into one table. A workbook that
// cannot be read is skipped and recorded in Table.Notes.
func Load(sources []Source, opts LoadOptions) (*Table, error) {
	if len(sources) == 0 {
		return nil, ErrNoData
	}

	t := &Table{}
	seen := map[string]bool{}
	for _, src := range sources {
		headers, orders, dropped, err := loadFile(src, opts)
		note := Note{Path: src.Path, Origin: src.Origin, Rows: len(orders), Dropped: dropped, Err: err}
		t.Notes = append(t.Notes, note)
		if err != nil {
			slog.Warn("Skipping workbook", "path", src.Path, "error", err)
			continue
		}
		slog.Info("Workbook loaded", "path", src.Path, "origin", src.Origin, "rows", len(orders), "dropped", dropped)

		for _, h := range headers {
			if !seen[h] {
				seen[h] = true
				t.Columns = append(t.Columns, h)
			}
		}
		t.Orders = append(t.Orders, orders...)
	}
	if !seen[OriginColumn] {
		t.Columns = append(t.Columns, OriginColumn)
	}

	// outer union: every row carries every column
	for i := range t.Orders {
		for _, c := range t.Columns {
			if _, ok := t.Orders[i].Raw[c]; !ok {
				t.Orders[i].Raw[c] = ""
			}
		}
	}

	if opts.Returns != nil {
		t.Orders = opts.Returns.Apply(t.Orders)
	}
	return t, nil
}

func loadFile(src Source, opts LoadOptions) ([]string, []Order, int, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, 0, fmt.Errorf("workbook has no sheets")
	}
	// raw values: date cells come back as serials, not in their display format
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return parseRows(rows, src.Origin, opts)
}

// parseRows turns raw sheet rows into orders. It returns the header names,
// the orders and the number of rows dropped for an unusable date.
func parseRows(rows [][]string, origin string, opts LoadOptions) ([]string, []Order, int, error) {
	start := opts.HeaderRows
	if start < 0 {
		start = 0
	}
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start >= len(rows) {
		return nil, nil, 0, fmt.Errorf("no header row after %d title rows", opts.HeaderRows)
	}

	headers := headerNames(rows[start])
	mapping, err := Resolve(headers, opts.rules())
	if err != nil {
		return nil, nil, 0, err
	}

	var (
		orders  []Order
		dropped int
	)
	for _, row := range rows[start+1:] {
		if isBlank(row) {
			continue
		}
		date, ok := ParseDate(mapping.Cell(row, FieldDate))
		if !ok {
			dropped++
			continue
		}

		raw := make(map[string]string, len(headers)+1)
		for i, h := range headers {
			if i < len(row) {
				raw[h] = strings.TrimSpace(row[i])
			} else {
				raw[h] = ""
			}
		}
		raw[OriginColumn] = origin
		if idx, ok := mapping[FieldDate]; ok && serialRe.MatchString(raw[headers[idx]]) {
			raw[headers[idx]] = date.String()
		}

		orders = append(orders, Order{
			Date:     date,
			Customer: orPlaceholder(mapping.Cell(row, FieldCustomer)),
			Phone:    mapping.Cell(row, FieldPhone),
			Store:    orPlaceholder(mapping.Cell(row, FieldStore)),
			Product:  orPlaceholder(mapping.Cell(row, FieldProduct)),
			Status:   orPlaceholder(mapping.Cell(row, FieldStatus)),
			Shipment: orPlaceholder(mapping.Cell(row, FieldShipment)),
			Amount:   ParseAmount(mapping.Cell(row, FieldAmount)),
			Origin:   origin,
			Raw:      raw,
		})
	}
	return headers, orders, dropped, nil
}

// headerNames trims headers, names blank ones after their column letter and
// disambiguates duplicates.
func headerNames(row []string) []string {
	names := make([]string, len(row))
	count := map[string]int{}
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			col, _ := excelize.ColumnNumberToName(i + 1)
			h = "Column " + col
		}
		count[h]++
		if count[h] > 1 {
			h = fmt.Sprintf("%s (%d)", h, count[h])
		}
		names[i] = h
	}
	return names
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func orPlaceholder(s string) string {
	if s == "" {
		return Unspecified
	}
	return s
}
