package report

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Unspecified stands in for a blank categorical value so the row can still
// be filtered and grouped.
const Unspecified = "(unspecified)"

// OriginColumn is the column added to every row naming its account.
const OriginColumn = "Origen"

// ErrNoData means there are no finalized workbooks to read yet.
var ErrNoData = errors.New("no data yet")

// Order is one normalized row of the working table.
type Order struct {
	Date     Date
	Customer string
	Phone    string
	Store    string
	Product  string
	Status   string
	Shipment string
	Amount   decimal.Decimal
	Origin   string

	// Raw keeps every source column, keyed by header, for the table view.
	Raw map[string]string
}

// Value returns the categorical value of f.
func (o Order) Value(f Field) string {
	switch f {
	case FieldCustomer:
		return o.Customer
	case FieldPhone:
		return o.Phone
	case FieldStore:
		return o.Store
	case FieldProduct:
		return o.Product
	case FieldStatus:
		return o.Status
	case FieldShipment:
		return o.Shipment
	case FieldOrigin:
		return o.Origin
	case FieldDate:
		return o.Date.String()
	case FieldAmount:
		return o.Amount.StringFixed(2)
	}
	return ""
}

// Note records what happened to one workbook during a load.
type Note struct {
	Path    string
	Origin  string
	Rows    int
	Dropped int
	Err     error
}

// Table is the working table: the union of every loaded workbook.
type Table struct {
	Orders []Order
	// Columns is the outer union of source headers in first-seen order,
	// followed by OriginColumn.
	Columns []string
	Notes   []Note
}

// Dropped counts rows discarded for unparseable dates.
func (t *Table) Dropped() int {
	n := 0
	for _, note := range t.Notes {
		n += note.Dropped
	}
	return n
}

// Failed returns the notes of workbooks that could not be read.
func (t *Table) Failed() []Note {
	var failed []Note
	for _, note := range t.Notes {
		if note.Err != nil {
			failed = append(failed, note)
		}
	}
	return failed
}
